package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Configuration provides type-safe access to application settings
type Configuration struct {
	viper *viper.Viper
}

// setDefaults applies the default value for every recognized setting
func setDefaults(v *viper.Viper) {
	v.SetDefault("transcription.task", "transcribe")
	v.SetDefault("transcription.language", "auto")
	v.SetDefault("transcription.chunk_duration_sec", 300)
	v.SetDefault("backend.mode", "local")
	v.SetDefault("whisper.model", "small")
	v.SetDefault("whisper.models_dir", "./models")
	v.SetDefault("whisper.gpu_mode", "auto")
	v.SetDefault("remote.url", "")
	v.SetDefault("remote.auth_token", "")
	v.SetDefault("remote.timeout_sec", 600)
	v.SetDefault("ffmpeg.path", "ffmpeg")
	v.SetDefault("watch.dir", "")
	v.SetDefault("output.dir", "")
	v.SetDefault("debug.enabled", false)
}

// NewConfiguration creates a new Configuration instance with default settings
func NewConfiguration() *Configuration {
	v := viper.New()
	setDefaults(v)
	return &Configuration{viper: v}
}

// NewConfigurationFromFile creates a Configuration instance from a config file
func NewConfigurationFromFile(configFile string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(configFile)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	return &Configuration{viper: v}, nil
}

// NewConfigurationFromEnv creates a Configuration instance that reads from environment variables
func NewConfigurationFromEnv() (*Configuration, error) {
	v := viper.New()
	setDefaults(v)

	// Set up environment variable mapping
	v.SetEnvPrefix("LONGSCRIBE")
	v.AutomaticEnv()

	// Map specific environment variables
	v.BindEnv("transcription.task", "LONGSCRIBE_TASK")
	v.BindEnv("transcription.language", "LONGSCRIBE_LANGUAGE")
	v.BindEnv("transcription.chunk_duration_sec", "LONGSCRIBE_CHUNK_DURATION_SEC")
	v.BindEnv("backend.mode", "LONGSCRIBE_BACKEND")
	v.BindEnv("whisper.model", "LONGSCRIBE_WHISPER_MODEL")
	v.BindEnv("whisper.models_dir", "LONGSCRIBE_MODELS_DIR")
	v.BindEnv("whisper.gpu_mode", "LONGSCRIBE_GPU_MODE")
	v.BindEnv("remote.url", "LONGSCRIBE_REMOTE_URL")
	v.BindEnv("remote.auth_token", "LONGSCRIBE_REMOTE_AUTH_TOKEN")
	v.BindEnv("remote.timeout_sec", "LONGSCRIBE_REMOTE_TIMEOUT_SEC")
	v.BindEnv("ffmpeg.path", "LONGSCRIBE_FFMPEG_PATH")
	v.BindEnv("watch.dir", "LONGSCRIBE_WATCH_DIR")
	v.BindEnv("output.dir", "LONGSCRIBE_OUTPUT_DIR")
	v.BindEnv("debug.enabled", "LONGSCRIBE_DEBUG")

	return &Configuration{viper: v}, nil
}

// Override replaces a setting with an explicitly provided value, taking
// precedence over config file and environment sources
func (c *Configuration) Override(key string, value interface{}) {
	c.viper.Set(key, value)
}

// GetTask returns the configured recognition task name
func (c *Configuration) GetTask() string {
	return c.viper.GetString("transcription.task")
}

// GetLanguage returns the configured language hint
func (c *Configuration) GetLanguage() string {
	return c.viper.GetString("transcription.language")
}

// GetChunkDurationSec returns the configured window duration in seconds
func (c *Configuration) GetChunkDurationSec() int {
	return c.viper.GetInt("transcription.chunk_duration_sec")
}

// GetBackendMode returns the configured recognition backend selector
func (c *Configuration) GetBackendMode() string {
	return c.viper.GetString("backend.mode")
}

// GetWhisperModel returns the configured Whisper model name
func (c *Configuration) GetWhisperModel() string {
	return c.viper.GetString("whisper.model")
}

// GetModelsDir returns the directory where Whisper model files are stored
func (c *Configuration) GetModelsDir() string {
	return c.viper.GetString("whisper.models_dir")
}

// GetGPUMode returns the configured GPU usage policy (auto, on, off)
func (c *Configuration) GetGPUMode() string {
	return c.viper.GetString("whisper.gpu_mode")
}

// GetRemoteURL returns the configured remote transcription endpoint URL
func (c *Configuration) GetRemoteURL() string {
	return c.viper.GetString("remote.url")
}

// GetRemoteAuthToken returns the bearer token for the remote endpoint
func (c *Configuration) GetRemoteAuthToken() string {
	return c.viper.GetString("remote.auth_token")
}

// GetRemoteTimeoutSec returns the per-request timeout for the remote endpoint
func (c *Configuration) GetRemoteTimeoutSec() int {
	return c.viper.GetInt("remote.timeout_sec")
}

// GetFFmpegPath returns the path of the ffmpeg binary used for decoding
func (c *Configuration) GetFFmpegPath() string {
	return c.viper.GetString("ffmpeg.path")
}

// GetWatchDir returns the directory monitored in watch mode, empty when disabled
func (c *Configuration) GetWatchDir() string {
	return c.viper.GetString("watch.dir")
}

// GetOutputDir returns the directory where transcripts are written, empty
// meaning next to the input file
func (c *Configuration) GetOutputDir() string {
	return c.viper.GetString("output.dir")
}

// GetDebugMode returns whether debug logging is enabled
func (c *Configuration) GetDebugMode() bool {
	return c.viper.GetBool("debug.enabled")
}
