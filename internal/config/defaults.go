package config

const (
	defaultUploadDir          = "~/.local/share/shortcast/uploads"
	defaultProcessedDir       = "~/.local/share/shortcast/processed"
	defaultLogDir             = "~/.local/share/shortcast/logs"
	defaultAPIBind            = "127.0.0.1:8742"
	defaultDetectMaxFrames    = 10
	defaultTimeBudgetSeconds  = 300
	defaultWhisperModel       = "base"
	defaultWhisperBinary      = "whisper"
	defaultFFmpegBinary       = "ffmpeg"
	defaultFFprobeBinary      = "ffprobe"
	defaultTesseractBinary    = "tesseract"
	defaultLanguage           = "en"
	defaultClientSecretsFile  = "~/.config/shortcast/client_secrets.json"
	defaultTokenFile          = "~/.config/shortcast/token.json"
	defaultCategoryID         = "22"
	defaultChunkSizeMiB       = 8
	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 10
	defaultHeartbeatInterval  = 15
	defaultHeartbeatTimeout   = 120
	defaultWorkers            = 2
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultNtfyTimeout        = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			UploadDir:    defaultUploadDir,
			ProcessedDir: defaultProcessedDir,
			LogDir:       defaultLogDir,
			APIBind:      defaultAPIBind,
		},
		Processing: Processing{
			DetectMaxFrames:   defaultDetectMaxFrames,
			TimeBudgetSeconds: defaultTimeBudgetSeconds,
			WhisperModel:      defaultWhisperModel,
			WhisperBinary:     defaultWhisperBinary,
			FFmpegBinary:      defaultFFmpegBinary,
			FFprobeBinary:     defaultFFprobeBinary,
			TesseractBinary:   defaultTesseractBinary,
			Language:          defaultLanguage,
		},
		YouTube: YouTube{
			ClientSecretsFile: defaultClientSecretsFile,
			TokenFile:         defaultTokenFile,
			CategoryID:        defaultCategoryID,
			ChunkSizeMiB:      defaultChunkSizeMiB,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
			Workers:            defaultWorkers,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
			Upload:         true,
			Processing:     true,
			Publish:        true,
			Errors:         true,
		},
	}
}
