package app_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/voicebay/server/internal/app"
)

func TestAppConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     app.AppConfig
		wantErr bool
	}{
		{
			name: "valid",
			cfg:  app.AppConfig{Port: 8080, VoiceChannel: "voice_server_consume"},
		},
		{
			name:    "port too low",
			cfg:     app.AppConfig{Port: 0, VoiceChannel: "voice_server_consume"},
			wantErr: true,
		},
		{
			name:    "port too high",
			cfg:     app.AppConfig{Port: 70000, VoiceChannel: "voice_server_consume"},
			wantErr: true,
		},
		{
			name:    "empty voice channel",
			cfg:     app.AppConfig{Port: 8080},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
