package info

import (
	"fmt"
	"strings"
	"time"

	random "github.com/mazen160/go-random"
)

// Info is the data behind the INFO command.
type Info struct {
	Server   Server
	Keyspace Keyspace
}

// Server describes the running cache server instance.
type Server struct {
	RunID     string
	Port      int
	StartedAt time.Time
}

// Keyspace counts the live keys.
type Keyspace struct {
	Keys int
}

// NewServer builds the per-process server section. The run id is
// regenerated on every start.
func NewServer(port int) (Server, error) {
	runID, err := random.String(40)
	if err != nil {
		return Server{}, fmt.Errorf("run id generation failed: %w", err)
	}

	return Server{
		RunID:     runID,
		Port:      port,
		StartedAt: time.Now(),
	}, nil
}

// Render produces the INFO payload text.
func (info Info) Render() string {
	res := make([]string, 0)

	res = append(res, serverInfo(&info.Server))
	res = append(res, keyspaceInfo(&info.Keyspace))

	return strings.Join(res, "\r\n")
}

func serverInfo(s *Server) string {
	res := make([]string, 0)

	res = append(res, "# Server")
	res = append(res, fmt.Sprintf("run_id:%v", s.RunID))
	res = append(res, fmt.Sprintf("tcp_port:%v", s.Port))
	res = append(res, fmt.Sprintf("uptime_in_seconds:%v", int(time.Since(s.StartedAt).Seconds())))

	return strings.Join(res, "\r\n")
}

func keyspaceInfo(k *Keyspace) string {
	res := make([]string, 0)

	res = append(res, "# Keyspace")
	res = append(res, fmt.Sprintf("db0:keys=%v", k.Keys))

	return strings.Join(res, "\r\n")
}
