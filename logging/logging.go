package logging

import (
	log "github.com/sirupsen/logrus"
)

// Setup настраивает глобальный логгер по уровню из конфига
func Setup(level string) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}
