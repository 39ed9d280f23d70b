package consts

import "time"

// Conversion operation tags carried inside callback tokens
const (
	OpPNG     = "png"
	OpWEBP    = "webp"
	OpPDF     = "pdf"
	OpJPG     = "jpg"
	OpMP3     = "mp3"
	OpRecheck = "recheck"
)

// Button Labels with Emojis
const (
	ButtonToPNG  = "🖼️ PNG"
	ButtonToWEBP = "🖼️ WEBP"
	ButtonToJPG  = "🖼️ JPG"
	ButtonToPDF  = "📄 PDF"
	ButtonToMP3  = "🎵 Extract Audio (MP3)"

	ButtonJoinChannel = "📢 Join Channel"
	ButtonRecheck     = "🔄 I Joined, Recheck"
)

// Common Error Messages
const (
	ErrorGenericFailure   = "❌ Something went wrong. Please try again."
	ErrorFileExpired      = "❌ File expired or no longer exists on the server. Please send it again."
	ErrorConversionFailed = "❌ Conversion failed."
	ErrorFileTooLarge     = "❌ File is larger than 50MB. Telegram restricts bots from uploading files larger than 50MB."
	ErrorZipTooLarge      = "❌ The resulting ZIP is over 50MB. Telegram bots cannot upload files this large."
	ErrorZipFailed        = "❌ Error creating ZIP file."
	ErrorEmptySession     = "⚠️ You have no files saved in your session. Send me some pics/files first!"
	ErrorSessionEmpty     = "⚠️ Your session is already empty."
	ErrorProcessingFailed = "❌ Failed to process the file."
	ErrorDownloadFailed   = "❌ Failed to download or send the file. Make sure it's a direct download link."
	ErrorNotMemberYet     = "❌ You haven't joined yet. Join the channel, then tap Recheck."
)

// Success and Status Messages
const (
	StatusDownloadingLink = "⏳ Downloading file from link..."
	StatusUploading       = "📤 Uploading to Telegram..."
	StatusUploadingZip    = "📤 Uploading ZIP..."
	StatusUploadingOutput = "📤 Uploading converted file..."
	StatusZipping         = "⏳ Zipping your files..."
	StatusProcessingFile  = "⏳ Processing file..."
	StatusConverting      = "⏳ Converting to %s..."

	SuccessSessionCleared = "🧹 Session cleared. All temporary files deleted."
	SuccessMemberVerified = "✅ Membership verified. You are all set!"
)

// Prompt Messages
const (
	PromptImageSaved    = "File saved to your session! Do you want to convert it?"
	PromptVideoSaved    = "Video saved to your session! Do you want to extract audio?"
	PromptDocumentSaved = "Document saved to your session. Total files: %d. Send /zip to pack them."
	PromptJoinChannel   = "🔒 This bot is reserved for channel members.\n\nJoin the channel below, then tap Recheck."
)

// Size Limits
//
// Telegram caps bot uploads at 50MB; keep a safety margin below it so a
// borderline artifact never bounces at the API.
const (
	MaxUploadBytes = 49 * 1024 * 1024
)

// Timeouts
const (
	DownloadTimeout  = 10 * time.Second
	TranscodeTimeout = 2 * time.Minute
)

// Storage Defaults
const (
	DefaultStorageDir = "data/files"
	DefaultFileTTL    = 24 * time.Hour
	JanitorInterval   = 30 * time.Minute

	DefaultImageExt    = ".jpg"
	DefaultVideoExt    = ".mp4"
	DefaultDocumentExt = ".bin"
)

// Transcoder Defaults
const (
	DefaultTranscoderBin = "ffmpeg"
)

// Telegram Protocol Limits
const (
	// Callback payloads are rejected by the Bot API above 64 bytes.
	MaxCallbackDataLength = 64
)

// HTML Parse Mode
const (
	ParseModeHTML = "HTML"
)
