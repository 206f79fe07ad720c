package handlers

import (
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/gorilla/mux"
)

// Version may be set with -ldflags "-X novafront/handlers.Version=1.2.3".
var Version string

var (
	resolvedVersion string
	versionOnce     sync.Once
)

type VersionHandler struct{}

type VersionResponse struct {
	Version   string `json:"version"`
	GoVersion string `json:"goVersion,omitempty"`
}

func NewVersionHandler() *VersionHandler {
	return &VersionHandler{}
}

// RegisterRoutes mounts GET /api/version.
func (h *VersionHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/version", h.GetVersion).Methods(http.MethodGet)
}

// ServiceVersion resolves the version once: linker flag, then version.txt,
// then the module build info.
func ServiceVersion() string {
	versionOnce.Do(func() {
		if v := strings.TrimSpace(Version); v != "" {
			resolvedVersion = v
			return
		}
		for _, path := range []string{"version.txt", "/app/version.txt"} {
			if data, err := os.ReadFile(path); err == nil {
				if v := strings.TrimSpace(string(data)); v != "" {
					resolvedVersion = v
					return
				}
			}
		}
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			resolvedVersion = info.Main.Version
			return
		}
		resolvedVersion = "unknown"
	})
	return resolvedVersion
}

func (h *VersionHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	resp := VersionResponse{Version: ServiceVersion()}
	if info, ok := debug.ReadBuildInfo(); ok {
		resp.GoVersion = info.GoVersion
	}
	writeJSON(w, http.StatusOK, resp)
}
