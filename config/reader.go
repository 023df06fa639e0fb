package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
}

type ConfigSchema struct {
	Databases struct {
		Master   DBConfig   `yaml:"master"`
		Replicas []DBConfig `yaml:"replicas"`
	} `yaml:"databases"`
	Backend struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"backend"`
	Redis struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	RabbitMQ struct {
		URL string `yaml:"url"`
	} `yaml:"rabbitmq"`
	Firebase struct {
		KeyPath   string `yaml:"key_path"`
		ProjectID string `yaml:"project_id"`
	} `yaml:"firebase"`
	VK struct {
		ServiceKey string `yaml:"service_key"`
	} `yaml:"vk"`
	Telegram struct {
		AlertsBotToken  string `yaml:"alerts_bot_token"`
		AlertsChannelID string `yaml:"alerts_channel_id"`
	} `yaml:"telegram"`
	Media struct {
		Root string `yaml:"root"`
	} `yaml:"media"`
	FrontendURL string `yaml:"frontend_url"`
	Logs        struct {
		Level string `yaml:"level"`
	} `yaml:"logs"`
	Debug struct {
		IsDebug   bool   `yaml:"is_debug"`
		TestToken string `yaml:"test_token"`
	} `yaml:"debug"`
	// Окна и кулдауны для нотификационных сканов
	Notifications struct {
		CreationDelayMinutes         int `yaml:"creation_delay_minutes"`
		SelfBirthdayAdvanceDays      int `yaml:"self_birthday_advance_days"`
		SelfBirthdayCooldownDays     int `yaml:"self_birthday_cooldown_days"`
		FollowerBirthdayMinDays      int `yaml:"follower_birthday_min_days"`
		FollowerBirthdayMaxDays      int `yaml:"follower_birthday_max_days"`
		FollowerBirthdayCooldownDays int `yaml:"follower_birthday_cooldown_days"`
	} `yaml:"notifications"`
}

var AppConfig *ConfigSchema

func LoadConfig(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	var conf ConfigSchema
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return err
	}
	applyDefaults(&conf)
	AppConfig = &conf
	return nil
}

func applyDefaults(conf *ConfigSchema) {
	n := &conf.Notifications
	if n.CreationDelayMinutes == 0 {
		n.CreationDelayMinutes = 30
	}
	if n.SelfBirthdayAdvanceDays == 0 {
		n.SelfBirthdayAdvanceDays = 21
	}
	if n.SelfBirthdayCooldownDays == 0 {
		n.SelfBirthdayCooldownDays = 30
	}
	if n.FollowerBirthdayMinDays == 0 {
		n.FollowerBirthdayMinDays = 7
	}
	if n.FollowerBirthdayMaxDays == 0 {
		n.FollowerBirthdayMaxDays = 21
	}
	if n.FollowerBirthdayCooldownDays == 0 {
		n.FollowerBirthdayCooldownDays = 200
	}
}
