package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpts_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Opts
		wantErr bool
	}{
		{
			name:    "defaults",
			opts:    Opts{Port: 6379, Dir: "/data", DBFilename: "dump.rdb"},
			wantErr: false,
		},
		{
			name:    "port out of range",
			opts:    Opts{Port: 70000, Dir: "/data", DBFilename: "dump.rdb"},
			wantErr: true,
		},
		{
			name:    "empty dir",
			opts:    Opts{Port: 6379, Dir: "", DBFilename: "dump.rdb"},
			wantErr: true,
		},
		{
			name:    "filename with path separator",
			opts:    Opts{Port: 6379, Dir: "/data", DBFilename: "nested/dump.rdb"},
			wantErr: true,
		},
		{
			name:    "negative save interval",
			opts:    Opts{Port: 6379, Dir: "/data", DBFilename: "dump.rdb", SaveInterval: -1},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOpts_SnapshotPath(t *testing.T) {
	o := Opts{Dir: "/data", DBFilename: "dump.rdb"}
	assert.Equal(t, "/data/dump.rdb", o.SnapshotPath())
}
