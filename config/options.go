package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Opts represents the cache server config given by users.
type Opts struct {
	Port         int    `short:"p" long:"port" default:"6379" description:"port number to bind this server"`
	Dir          string `long:"dir" default:"/data" description:"directory holding the snapshot file"`
	DBFilename   string `long:"dbfilename" default:"dump.rdb" description:"snapshot file name"`
	SaveInterval int    `long:"save-interval" default:"0" description:"seconds between background snapshots, 0 disables them"`
}

func (o *Opts) Validate() error {
	if o.Port < 1 || o.Port > 65535 {
		return fmt.Errorf("not a valid port number: %d", o.Port)
	}

	if o.Dir == "" {
		return fmt.Errorf("dir must not be empty")
	}

	if o.DBFilename == "" || strings.ContainsRune(o.DBFilename, filepath.Separator) {
		return fmt.Errorf("not a valid snapshot file name: %s", o.DBFilename)
	}

	if o.SaveInterval < 0 {
		return fmt.Errorf("save interval must not be negative: %d", o.SaveInterval)
	}

	return nil
}

// SnapshotPath is where SAVE writes and startup loads the snapshot.
func (o *Opts) SnapshotPath() string {
	return filepath.Join(o.Dir, o.DBFilename)
}
