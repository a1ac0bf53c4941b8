package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultSystemInstructions is the persona used when a device has no stored configuration
const DefaultSystemInstructions = "Você é o Robozinho, um robô amigável que conversa com crianças em português do Brasil. " +
	"Responda de forma curta, gentil e clara."

// Config is the configuration shared by every binary
type Config struct {
	LogLevel string       `yaml:"log_level"`
	Server   ServerConfig `yaml:"server"`
	Client   ClientConfig `yaml:"client"`
}

// ServerConfig configures the turn server (HTTP and Lambda)
type ServerConfig struct {
	Port                      int           `yaml:"port"`
	AcceptedActions           []string      `yaml:"accepted_actions"`
	MaxFramePayload           int           `yaml:"max_frame_payload"`
	SampleRate                int           `yaml:"sample_rate"`
	LLMProvider               string        `yaml:"llm_provider"`
	TTSProvider               string        `yaml:"tts_provider"`
	ConfigStore               string        `yaml:"config_store"`
	DefaultSystemInstructions string        `yaml:"default_system_instructions"`
	StrictDeviceConfig        bool          `yaml:"strict_device_config"`
	ModelTimeout              time.Duration `yaml:"model_timeout"`
	SynthesisTimeout          time.Duration `yaml:"synthesis_timeout"`
	JWTSecret                 string        `yaml:"jwt_secret"`
	AWSRegion                 string        `yaml:"aws_region"`
	AWSAccessKeyID            string        `yaml:"aws_access_key_id"`
	AWSSecretAccessKey        string        `yaml:"aws_secret_access_key"`
	AWSSessionToken           string        `yaml:"aws_session_token"`
	APIGatewayEndpoint        string        `yaml:"api_gateway_endpoint"`
	DatabaseURL               string        `yaml:"database_url"`
	MongoURI                  string        `yaml:"mongodb_uri"`
	MongoDatabase             string        `yaml:"mongodb_database"`

	Gemini     GeminiConfig     `yaml:"gemini"`
	Bedrock    BedrockConfig    `yaml:"bedrock"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	ElevenLabs ElevenLabsConfig `yaml:"elevenlabs"`
	Polly      PollyConfig      `yaml:"polly"`
}

// GeminiConfig selects the Gemini model
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// BedrockConfig selects the Claude model served by Bedrock
type BedrockConfig struct {
	ModelID   string `yaml:"model_id"`
	MaxTokens int    `yaml:"max_tokens"`
}

// OpenAIConfig selects the OpenAI-compatible chat model
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// ElevenLabsConfig selects the ElevenLabs voice
type ElevenLabsConfig struct {
	APIKey  string `yaml:"api_key"`
	VoiceID string `yaml:"voice_id"`
	ModelID string `yaml:"model_id"`
}

// PollyConfig selects the Polly voice
type PollyConfig struct {
	VoiceID string `yaml:"voice_id"`
	Engine  string `yaml:"engine"`
}

// ClientConfig configures the voice client
type ClientConfig struct {
	Mode            string        `yaml:"mode"`
	APIURL          string        `yaml:"api_url"`
	WebSocketURL    string        `yaml:"websocket_url"`
	Action          string        `yaml:"action"`
	RobotCode       string        `yaml:"robot_code"`
	STTProvider     string        `yaml:"stt_provider"`
	LanguageCode    string        `yaml:"language_code"`
	SampleRate      int           `yaml:"sample_rate"`
	ChunkDuration   time.Duration `yaml:"chunk_duration"`
	RealTimeUpload  bool          `yaml:"realtime_upload"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	ResponseTimeout time.Duration `yaml:"response_timeout"`
	DeepgramAPIKey  string        `yaml:"deepgram_api_key"`
	DeepgramModel   string        `yaml:"deepgram_model"`
	SaveWAVDir      string        `yaml:"save_wav_dir"`
}

// Default returns the configuration used before the file and environment are applied
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Server: ServerConfig{
			Port:                      8080,
			AcceptedActions:           []string{"invokeBedrock", "resposta"},
			MaxFramePayload:           32000,
			SampleRate:                16000,
			LLMProvider:               "bedrock",
			TTSProvider:               "polly",
			ConfigStore:               "memory",
			DefaultSystemInstructions: DefaultSystemInstructions,
			ModelTimeout:              30 * time.Second,
			SynthesisTimeout:          30 * time.Second,
			AWSRegion:                 "us-east-1",
			MongoDatabase:             "robozinho",
			Gemini:                    GeminiConfig{Model: "gemini-2.5-flash"},
			Bedrock:                   BedrockConfig{ModelID: "anthropic.claude-3-haiku-20240307-v1:0", MaxTokens: 2048},
			OpenAI:                    OpenAIConfig{Model: "gpt-4o-mini"},
			Polly:                     PollyConfig{VoiceID: "Ricardo", Engine: "standard"},
		},
		Client: ClientConfig{
			Mode:            "stream",
			Action:          "invokeBedrock",
			STTProvider:     "google",
			LanguageCode:    "pt-BR",
			SampleRate:      16000,
			ChunkDuration:   100 * time.Millisecond,
			RealTimeUpload:  true,
			PollInterval:    50 * time.Millisecond,
			ResponseTimeout: 90 * time.Second,
			DeepgramModel:   "nova-2",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment (a .env file in the working directory is loaded first when present).
// Environment variables win over the file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	s := &c.Server
	cl := &c.Client
	bindings := []struct {
		key   string
		apply func(string) error
	}{
		{"LOG_LEVEL", setString(&c.LogLevel)},

		{"PORT", setInt(&s.Port)},
		{"ACCEPTED_ACTIONS", setList(&s.AcceptedActions)},
		{"MAX_FRAME_PAYLOAD", setInt(&s.MaxFramePayload)},
		{"SAMPLE_RATE", setInt(&s.SampleRate)},
		{"LLM_PROVIDER", setString(&s.LLMProvider)},
		{"TTS_PROVIDER", setString(&s.TTSProvider)},
		{"CONFIG_STORE", setString(&s.ConfigStore)},
		{"DEFAULT_SYSTEM_INSTRUCTIONS", setString(&s.DefaultSystemInstructions)},
		{"STRICT_DEVICE_CONFIG", setBool(&s.StrictDeviceConfig)},
		{"MODEL_TIMEOUT", setDuration(&s.ModelTimeout)},
		{"SYNTHESIS_TIMEOUT", setDuration(&s.SynthesisTimeout)},
		{"JWT_SECRET", setString(&s.JWTSecret)},
		{"AWS_REGION", setString(&s.AWSRegion)},
		{"API_GATEWAY_ENDPOINT", setString(&s.APIGatewayEndpoint)},
		{"DATABASE_URL", setString(&s.DatabaseURL)},
		{"MONGODB_URI", setString(&s.MongoURI)},
		{"MONGODB_DATABASE", setString(&s.MongoDatabase)},
		{"GEMINI_API_KEY", setString(&s.Gemini.APIKey)},
		{"GEMINI_MODEL", setString(&s.Gemini.Model)},
		{"BEDROCK_MODEL_ID", setString(&s.Bedrock.ModelID)},
		{"BEDROCK_MAX_TOKENS", setInt(&s.Bedrock.MaxTokens)},
		{"OPENAI_API_KEY", setString(&s.OpenAI.APIKey)},
		{"OPENAI_MODEL", setString(&s.OpenAI.Model)},
		{"OPENAI_BASE_URL", setString(&s.OpenAI.BaseURL)},
		{"ELEVENLABS_API_KEY", setString(&s.ElevenLabs.APIKey)},
		{"ELEVENLABS_VOICE_ID", setString(&s.ElevenLabs.VoiceID)},
		{"ELEVENLABS_MODEL_ID", setString(&s.ElevenLabs.ModelID)},
		{"POLLY_VOICE_ID", setString(&s.Polly.VoiceID)},
		{"POLLY_ENGINE", setString(&s.Polly.Engine)},

		{"CLIENT_MODE", setString(&cl.Mode)},
		{"API_URL", setString(&cl.APIURL)},
		{"WEBSOCKET_URL", setString(&cl.WebSocketURL)},
		{"CLIENT_ACTION", setString(&cl.Action)},
		{"ROBOT_CODE", setString(&cl.RobotCode)},
		{"STT_PROVIDER", setString(&cl.STTProvider)},
		{"LANGUAGE_CODE", setString(&cl.LanguageCode)},
		{"CLIENT_SAMPLE_RATE", setInt(&cl.SampleRate)},
		{"STT_CHUNK_DURATION", setDuration(&cl.ChunkDuration)},
		{"STT_REALTIME", setBool(&cl.RealTimeUpload)},
		{"CAPTURE_POLL_INTERVAL", setDuration(&cl.PollInterval)},
		{"RESPONSE_TIMEOUT", setDuration(&cl.ResponseTimeout)},
		{"DEEPGRAM_API_KEY", setString(&cl.DeepgramAPIKey)},
		{"DEEPGRAM_MODEL", setString(&cl.DeepgramModel)},
		{"SAVE_WAV_DIR", setString(&cl.SaveWAVDir)},
	}

	for _, b := range bindings {
		value, ok := os.LookupEnv(b.key)
		if !ok {
			continue
		}
		if err := b.apply(strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("invalid %s: %w", b.key, err)
		}
	}
	return nil
}

// ValidateServer reports configuration the server cannot start without
func (c *Config) ValidateServer() error {
	s := c.Server
	var errs []error

	if s.Port <= 0 {
		errs = append(errs, fmt.Errorf("port must be positive, got %d", s.Port))
	}
	if len(s.AcceptedActions) == 0 {
		errs = append(errs, errors.New("at least one accepted action is required"))
	}
	if s.MaxFramePayload <= 0 {
		errs = append(errs, fmt.Errorf("max frame payload must be positive, got %d", s.MaxFramePayload))
	}
	if s.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample rate must be positive, got %d", s.SampleRate))
	}

	if (s.AWSAccessKeyID == "") != (s.AWSSecretAccessKey == "") {
		errs = append(errs, errors.New("aws_access_key_id and aws_secret_access_key must be set together"))
	}

	switch s.LLMProvider {
	case "gemini":
		if s.Gemini.APIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for the gemini provider"))
		}
	case "openai":
		if s.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai provider"))
		}
	case "bedrock", "mock":
	default:
		errs = append(errs, fmt.Errorf("unknown llm provider %q", s.LLMProvider))
	}

	switch s.TTSProvider {
	case "elevenlabs":
		if s.ElevenLabs.APIKey == "" {
			errs = append(errs, errors.New("ELEVENLABS_API_KEY is required for the elevenlabs provider"))
		}
	case "polly", "mock":
	default:
		errs = append(errs, fmt.Errorf("unknown tts provider %q", s.TTSProvider))
	}

	switch s.ConfigStore {
	case "postgres":
		if s.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres config store"))
		}
	case "mongo":
		if s.MongoURI == "" {
			errs = append(errs, errors.New("MONGODB_URI is required for the mongo config store"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown config store %q", s.ConfigStore))
	}

	return errors.Join(errs...)
}

// ValidateClient reports configuration the voice client cannot start without
func (c *Config) ValidateClient() error {
	cl := c.Client
	var errs []error

	switch cl.Mode {
	case "sync":
		if cl.APIURL == "" {
			errs = append(errs, errors.New("API_URL is required in sync mode"))
		}
	case "stream":
		if cl.WebSocketURL == "" {
			errs = append(errs, errors.New("WEBSOCKET_URL is required in stream mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown client mode %q", cl.Mode))
	}

	switch cl.STTProvider {
	case "deepgram":
		if cl.DeepgramAPIKey == "" {
			errs = append(errs, errors.New("DEEPGRAM_API_KEY is required for the deepgram provider"))
		}
	case "google", "mock":
	default:
		errs = append(errs, fmt.Errorf("unknown stt provider %q", cl.STTProvider))
	}

	if cl.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample rate must be positive, got %d", cl.SampleRate))
	}
	return errors.Join(errs...)
}

func setString(dst *string) func(string) error {
	return func(v string) error {
		*dst = v
		return nil
	}
}

func setInt(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func setBool(dst *bool) func(string) error {
	return func(v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst = b
		return nil
	}
}

func setDuration(dst *time.Duration) func(string) error {
	return func(v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
}

func setList(dst *[]string) func(string) error {
	return func(v string) error {
		var out []string
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		*dst = out
		return nil
	}
}
