package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var Conf *viper.Viper

func init() {
	Conf = viper.New()

	// defaults
	Conf.SetTypeByDefaultValue(true)
	Conf.SetDefault("debug", true)
	Conf.SetDefault("appName", "Formations")

	// the store's atomic batch is bounded; cascades are chunked to this size
	Conf.SetDefault("storeBatchLimit", 500)

	// all calendar-day and week computations happen in this fixed timezone,
	// never in a caller's local clock
	Conf.SetDefault("attendanceTimezone", "UTC")

	// attendance report rows use fixed-width cells
	Conf.SetDefault("reportNameBudget", 22)

	Conf.SetDefault("mongoURI", "mongodb://localhost:27017")
	Conf.SetDefault("mongoDatabase", "formations")

	Conf.SetDefault("rollbarToken", "")

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case strings.ToUpper("TEST"):
		Conf.SetDefault("testMode", true)
	}
	Conf.SetDefault("env", env)
	Conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	Conf.AutomaticEnv()
}

// AttendanceLocation resolves the configured institution timezone.
// Signature timestamps are stored as instants; day boundaries only exist
// relative to this location.
func AttendanceLocation() *time.Location {
	name := Conf.GetString("attendanceTimezone")
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Fatalf("config.AttendanceLocation(%s): %v", name, err)
	}
	return loc
}
