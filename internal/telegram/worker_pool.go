package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/devmike09/Converter-Bot/internal/action"
	"github.com/devmike09/Converter-Bot/internal/logger"
)

// WorkerPool fans inbound updates out to handler goroutines. Messages and
// callbacks ride separate bounded queues so a burst of media uploads cannot
// starve button presses.
//
// Work that pins an external resource for a long stretch, a transcoder run,
// an open download stream or a zip build, must additionally claim one of a
// small number of heavy slots. Chat commands and membership rechecks bypass
// the slots entirely, so the bot stays responsive while conversions grind.
type WorkerPool struct {
	bot                 *Bot
	messageQueue        chan *tgbotapi.Message
	callbackQueue       chan *tgbotapi.CallbackQuery
	messageWorkerCount  int
	callbackWorkerCount int

	// Heavy-operation throttle
	maxHeavyOps int
	heavySlots  chan struct{}

	// Shutdown plumbing
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	mu      sync.RWMutex
}

// WorkerPoolConfig sizes the queues, the worker sets and the heavy-slot
// semaphore.
type WorkerPoolConfig struct {
	MessageWorkers    int // goroutines draining the message queue
	CallbackWorkers   int // goroutines draining the callback queue
	MessageQueueSize  int // buffered message backlog before drops
	CallbackQueueSize int // buffered callback backlog before drops
	MaxHeavyOps       int // transcoder runs, downloads and zip builds in flight
}

// DefaultWorkerPoolConfig sizes the pool for a single-process bot.
// MaxHeavyOps is the real throttle; the worker counts just keep light chat
// traffic flowing around the slow operations.
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		MessageWorkers:    8,
		CallbackWorkers:   4,
		MessageQueueSize:  100,
		CallbackQueueSize: 50,
		MaxHeavyOps:       4,
	}
}

func NewWorkerPool(bot *Bot, config WorkerPoolConfig) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		bot:                 bot,
		messageQueue:        make(chan *tgbotapi.Message, config.MessageQueueSize),
		callbackQueue:       make(chan *tgbotapi.CallbackQuery, config.CallbackQueueSize),
		messageWorkerCount:  config.MessageWorkers,
		callbackWorkerCount: config.CallbackWorkers,
		maxHeavyOps:         config.MaxHeavyOps,
		heavySlots:          make(chan struct{}, config.MaxHeavyOps),
		ctx:                 ctx,
		cancel:              cancel,
		started:             false,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start() error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.started {
		return fmt.Errorf("worker pool started twice")
	}

	logger.Info("Worker pool starting", map[string]interface{}{
		"message_workers":     wp.messageWorkerCount,
		"callback_workers":    wp.callbackWorkerCount,
		"heavy_ops_max":       wp.maxHeavyOps,
		"message_queue_size":  cap(wp.messageQueue),
		"callback_queue_size": cap(wp.callbackQueue),
	})

	for i := 0; i < wp.messageWorkerCount; i++ {
		wp.wg.Add(1)
		go wp.messageWorker(i)
	}

	for i := 0; i < wp.callbackWorkerCount; i++ {
		wp.wg.Add(1)
		go wp.callbackWorker(i)
	}

	wp.started = true
	logger.InfoMsg("Worker pool started")
	return nil
}

// Stop drains the pool: the queues stop accepting work, in-flight handlers
// get to finish, and after 30 seconds whatever is still running (typically a
// wedged transcoder) is abandoned with an error.
func (wp *WorkerPool) Stop() error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if !wp.started {
		return fmt.Errorf("worker pool is not running")
	}
	// Flip started before closing anything; a second Stop after a timeout
	// must not reach the close calls again.
	wp.started = false

	logger.InfoMsg("Worker pool draining")

	close(wp.messageQueue)
	close(wp.callbackQueue)
	wp.cancel()

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.InfoMsg("Worker pool drained")
	case <-time.After(30 * time.Second):
		logger.Warn("Worker pool shutdown timed out", nil)
		return fmt.Errorf("worker pool shutdown timed out")
	}

	return nil
}

// SubmitMessage queues a message for handling. A full queue drops the
// message rather than blocking the update loop.
func (wp *WorkerPool) SubmitMessage(message *tgbotapi.Message) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if !wp.started {
		return fmt.Errorf("worker pool is not running")
	}

	select {
	case wp.messageQueue <- message:
		logger.Debug("Message queued", map[string]interface{}{
			"chat_id":    message.Chat.ID,
			"queue_size": len(wp.messageQueue),
		})
		wp.noteQueueDepth()
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool draining")
	default:
		logger.Warn("Message backlog full, dropping", map[string]interface{}{
			"chat_id": message.Chat.ID,
		})
		return fmt.Errorf("message backlog full")
	}
}

// SubmitCallback queues a button press for handling.
func (wp *WorkerPool) SubmitCallback(callback *tgbotapi.CallbackQuery) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if !wp.started {
		return fmt.Errorf("worker pool is not running")
	}

	select {
	case wp.callbackQueue <- callback:
		logger.Debug("Callback queued", map[string]interface{}{
			"callback_id":   callback.ID,
			"callback_data": callback.Data,
			"queue_size":    len(wp.callbackQueue),
		})
		wp.noteQueueDepth()
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool draining")
	default:
		logger.Warn("Callback backlog full, dropping", map[string]interface{}{
			"callback_id": callback.ID,
		})
		return fmt.Errorf("callback backlog full")
	}
}

func (wp *WorkerPool) messageWorker(workerID int) {
	defer wp.recoverWorker("message", workerID)

	for {
		select {
		case message, ok := <-wp.messageQueue:
			if !ok {
				return
			}
			wp.noteQueueDepth()
			wp.runMessage(message, workerID)
		case <-wp.ctx.Done():
			return
		}
	}
}

func (wp *WorkerPool) callbackWorker(workerID int) {
	defer wp.recoverWorker("callback", workerID)

	for {
		select {
		case callback, ok := <-wp.callbackQueue:
			if !ok {
				return
			}
			wp.noteQueueDepth()
			wp.runCallback(callback, workerID)
		case <-wp.ctx.Done():
			return
		}
	}
}

// recoverWorker keeps one panicking handler from taking the process down;
// the worker itself is not restarted.
func (wp *WorkerPool) recoverWorker(kind string, workerID int) {
	if r := recover(); r != nil {
		logger.Error("Worker panic recovered", map[string]interface{}{
			"worker":    kind,
			"worker_id": workerID,
			"panic":     r,
		})
	}
	wp.wg.Done()
}

func (wp *WorkerPool) runMessage(message *tgbotapi.Message, workerID int) {
	if messageNeedsSlot(message) {
		if !wp.claimSlot() {
			return
		}
		defer wp.releaseSlot()
	}

	start := time.Now()
	if err := wp.bot.handleMessage(message); err != nil {
		logger.Error("Message handler failed", map[string]interface{}{
			"worker_id": workerID,
			"chat_id":   message.Chat.ID,
			"error":     err.Error(),
		})
		wp.bot.sendErrorResponse(message.Chat.ID, err)
		return
	}

	logger.Debug("Message handled", map[string]interface{}{
		"worker_id": workerID,
		"chat_id":   message.Chat.ID,
		"elapsed":   time.Since(start).String(),
	})
}

func (wp *WorkerPool) runCallback(callback *tgbotapi.CallbackQuery, workerID int) {
	if callbackNeedsSlot(callback) {
		if !wp.claimSlot() {
			return
		}
		defer wp.releaseSlot()
	}

	start := time.Now()
	if err := wp.bot.handleCallbackQuery(callback); err != nil {
		logger.Error("Callback handler failed", map[string]interface{}{
			"worker_id":   workerID,
			"callback_id": callback.ID,
			"error":       err.Error(),
		})
		if callback.Message != nil {
			wp.bot.sendErrorResponse(callback.Message.Chat.ID, err)
		}
		return
	}

	logger.Debug("Callback handled", map[string]interface{}{
		"worker_id": workerID,
		"elapsed":   time.Since(start).String(),
	})
}

// noteQueueDepth samples both backlogs into the metrics gauges. The
// collector may be absent on partially wired bots.
func (wp *WorkerPool) noteQueueDepth() {
	if wp.bot == nil || wp.bot.metrics == nil {
		return
	}
	wp.bot.metrics.SetQueueDepth("message", len(wp.messageQueue))
	wp.bot.metrics.SetQueueDepth("callback", len(wp.callbackQueue))
}

// claimSlot blocks until a heavy slot frees up or the pool shuts down.
func (wp *WorkerPool) claimSlot() bool {
	select {
	case wp.heavySlots <- struct{}{}:
		return true
	case <-wp.ctx.Done():
		return false
	}
}

func (wp *WorkerPool) releaseSlot() {
	<-wp.heavySlots
}

// messageNeedsSlot reports whether handling the message can hold an external
// resource: media intake downloads the file, a direct link streams it, and
// /zip writes and uploads an archive.
func messageNeedsSlot(message *tgbotapi.Message) bool {
	if len(message.Photo) > 0 || message.Video != nil || message.Document != nil {
		return true
	}
	text := strings.TrimSpace(message.Text)
	if directLinkPattern.MatchString(text) {
		return true
	}
	return strings.HasPrefix(text, "/zip")
}

// callbackNeedsSlot is false only for membership rechecks; every other token
// asks for a transcoder run.
func callbackNeedsSlot(callback *tgbotapi.CallbackQuery) bool {
	return callback.Data != action.RecheckToken()
}

// GetStats snapshots queue depths and heavy-slot occupancy for diagnostics.
func (wp *WorkerPool) GetStats() map[string]interface{} {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	return map[string]interface{}{
		"started":                 wp.started,
		"message_queue_size":      len(wp.messageQueue),
		"callback_queue_size":     len(wp.callbackQueue),
		"message_queue_capacity":  cap(wp.messageQueue),
		"callback_queue_capacity": cap(wp.callbackQueue),
		"heavy_ops_active":        len(wp.heavySlots),
		"heavy_ops_max":           wp.maxHeavyOps,
		"message_workers":         wp.messageWorkerCount,
		"callback_workers":        wp.callbackWorkerCount,
	}
}
