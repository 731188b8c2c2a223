package app

import (
	"github.com/yungbote/streemm-backend/internal/platform/envutil"
	"github.com/yungbote/streemm-backend/internal/recall"
)

// Config holds the process-wide settings LoadConfig reads from the
// environment, adapted from the teacher's internal/app.LoadConfig shape
// (flat env-driven struct, defaults baked in) to this module's own knobs.
type Config struct {
	HTTPAddr string

	ObjectStorageMode         string
	StorageEmulatorHost       string
	StorageModeCompatFallback bool

	RunServer   bool
	RunWorker   bool
	RunNotifier bool

	Recall recall.Config
}

func LoadConfig() Config {
	return Config{
		HTTPAddr: envutil.GetEnv("HTTP_ADDR", ":8080"),

		ObjectStorageMode:         envutil.GetEnv("OBJECT_STORAGE_MODE", "gcs"),
		StorageEmulatorHost:       envutil.GetEnv("STORAGE_EMULATOR_HOST", ""),
		StorageModeCompatFallback: envutil.GetEnvAsBool("STORAGE_MODE_COMPAT_FALLBACK", false),

		RunServer:   envutil.GetEnvAsBool("RUN_SERVER", true),
		RunWorker:   envutil.GetEnvAsBool("RUN_WORKER", false),
		RunNotifier: envutil.GetEnvAsBool("RUN_NOTIFIER", false),

		Recall: recall.ConfigFromEnv(),
	}
}
