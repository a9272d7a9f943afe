// internal/writer/builder_test.go
package writer

import (
	"testing"

	"github.com/tamzrod/health-watchdog/internal/config"
)

func TestBuild_Modbus(t *testing.T) {
	sw, closeFn, err := Build(config.StatusExportConfig{
		Endpoint:    "127.0.0.1:1",
		UnitID:      1,
		BaseAddress: 10,
		TimeoutMs:   100,
		Retries:     1,
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if sw == nil || sw.target.BaseAddress != 10 {
		t.Fatalf("unexpected writer %+v", sw)
	}
	if err := closeFn(); err != nil {
		t.Fatalf("close err=%v", err)
	}
}

func TestBuild_RequiresEndpoint(t *testing.T) {
	if _, _, err := Build(config.StatusExportConfig{}); err == nil {
		t.Fatalf("expected error")
	}
}
