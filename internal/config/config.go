package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel  string    `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort  string    `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	Redis     Redis     `yaml:"redis"`
	Room      Room      `yaml:"room"`
	Bot       Bot       `yaml:"bot"`
	WebSocket WebSocket `yaml:"websocket"`
}

type Redis struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// Room - how rooms are laid out in redis.
type Room struct {
	KeyPrefix   string        `yaml:"key-prefix" env:"ROOM_KEY_PREFIX" env-default:"rota"`
	PresenceTTL time.Duration `yaml:"presence-ttl" env:"ROOM_PRESENCE_TTL" env-default:"6h"`
}

type Bot struct {
	Difficulty       string  `yaml:"difficulty" env:"BOT_DIFFICULTY" env-default:"medium"`
	RandomMoveChance float64 `yaml:"random-move-chance" env:"BOT_RANDOM_MOVE_CHANCE" env-default:"0.4"`
}

type WebSocket struct {
	PingInterval    time.Duration `yaml:"ping-interval" env:"WS_PING_INTERVAL" env-default:"25s"`
	ClicksPerSecond float64       `yaml:"clicks-per-second" env:"WS_CLICKS_PER_SECOND" env-default:"5"`
	ClickBurst      int           `yaml:"click-burst" env:"WS_CLICK_BURST" env-default:"10"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
