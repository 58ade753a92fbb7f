package preflight

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// ServerStatus reports whether a scenecast API server answers on bind.
type ServerStatus struct {
	Running bool
	Address string
	State   string
	Detail  string
}

// CheckServer issues GET /api/status against a local server.
func CheckServer(ctx context.Context, bind, token string) ServerStatus {
	bind = strings.TrimSpace(bind)
	status := ServerStatus{Address: bind}
	if bind == "" {
		status.Detail = "api bind not configured"
		return status
	}

	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, "http://"+bind+"/api/status", nil)
	if err != nil {
		status.Detail = err.Error()
		return status
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		status.Detail = "not running"
		return status
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	switch resp.StatusCode {
	case http.StatusOK:
		status.Running = true
		status.State = gjson.GetBytes(body, "sessionState").String()
		status.Detail = fmt.Sprintf("running (session %s)", status.State)
	case http.StatusUnauthorized:
		status.Running = true
		status.Detail = "running (api token rejected)"
	default:
		status.Detail = fmt.Sprintf("unexpected response (%d)", resp.StatusCode)
	}
	return status
}

// Summary renders a display-friendly line for status UIs.
func (p ServerStatus) Summary() string {
	if p.Address == "" {
		return p.Detail
	}
	return fmt.Sprintf("%s on %s", p.Detail, p.Address)
}
