package db

import (
	"testing"

	"github.com/sh4869221b/niconeon/internal/config"

	"gorm.io/driver/postgres"
)

func TestDialectorSelectsDriver(t *testing.T) {
	tests := []struct {
		driver     string
		wantDriver string
	}{
		{config.DriverPgx, ""},
		{config.DriverLibPQ, "postgres"},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			cfg := &config.Config{DBHost: "db", DBPort: "5432", DBName: "niconeon", DBSQLDriver: tt.driver}

			d, ok := Dialector(cfg).(*postgres.Dialector)
			if !ok {
				t.Fatalf("unexpected dialector type %T", Dialector(cfg))
			}
			if d.Config.DriverName != tt.wantDriver {
				t.Errorf("DriverName = %q, want %q", d.Config.DriverName, tt.wantDriver)
			}
			if d.Config.DSN != cfg.DatabaseURL() {
				t.Errorf("DSN = %q", d.Config.DSN)
			}
		})
	}
}
