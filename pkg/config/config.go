package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	LLM        LLMConfig
	Literature LiteratureConfig
	Evaluation EvaluationConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host                 string
	Port                 int
	ReadTimeout          int
	WriteTimeout         int
	BodyLimit            int
	MaxRequestsPerMinute int
}

type LLMConfig struct {
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float32
	TopP        float32
	MaxTokens   int
	TimeoutSec  int
}

type LiteratureConfig struct {
	Enabled    bool
	APIKey     string
	BaseURL    string
	MaxResults int
	TimeoutSec int
}

type EvaluationConfig struct {
	Weights                map[string]float64
	FallbackDimensionScore int
	MaxTopicLength         int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/topic-eval")

	viper.SetEnvPrefix("TOPIC_EVAL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(cfg *Config) error {
	for role, weight := range cfg.Evaluation.Weights {
		if weight <= 0 {
			return fmt.Errorf("evaluation weight for %q must be positive, got %f", role, weight)
		}
	}
	if cfg.Evaluation.FallbackDimensionScore < 1 || cfg.Evaluation.FallbackDimensionScore > 10 {
		return fmt.Errorf("fallback dimension score must be in [1,10], got %d", cfg.Evaluation.FallbackDimensionScore)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 300)
	viper.SetDefault("server.bodyLimit", 1048576)
	viper.SetDefault("server.maxRequestsPerMinute", 30)

	viper.SetDefault("llm.baseURL", "")
	viper.SetDefault("llm.model", "gpt-4")
	viper.SetDefault("llm.temperature", 0.7)
	viper.SetDefault("llm.topP", 0.7)
	viper.SetDefault("llm.maxTokens", 10000)
	viper.SetDefault("llm.timeoutSec", 300)

	viper.SetDefault("literature.enabled", true)
	viper.SetDefault("literature.baseURL", "https://api.core.ac.uk/v3")
	viper.SetDefault("literature.maxResults", 5)
	viper.SetDefault("literature.timeoutSec", 30)

	viper.SetDefault("evaluation.weights.science_project_manager", 0.13)
	viper.SetDefault("evaluation.weights.engineer", 0.05)
	viper.SetDefault("evaluation.weights.researcher", 0.37)
	viper.SetDefault("evaluation.weights.astronaut", 0.04)
	viper.SetDefault("evaluation.weights.sociologist", 0.41)
	viper.SetDefault("evaluation.fallbackDimensionScore", 5)
	viper.SetDefault("evaluation.maxTopicLength", 5000)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
