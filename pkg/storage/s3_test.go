package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExportKey(t *testing.T) {
	assert.Equal(t, "exports/presenciales/abc.csv", ExportKey("abc"))
	assert.Equal(t, "exports/presenciales/evil.csv", ExportKey("../../evil"))
}

func TestPresignExpireDefault(t *testing.T) {
	s := &S3{}
	assert.Equal(t, 15*time.Minute, s.PresignExpire())
	s.cfg.PresignExpireMinutes = 2
	assert.Equal(t, 2*time.Minute, s.PresignExpire())
}

func TestExportsBucket(t *testing.T) {
	s := &S3{cfg: S3Config{ExportsBucket: "presenciales-exports"}}
	assert.Equal(t, "presenciales-exports", s.ExportsBucket())
}
