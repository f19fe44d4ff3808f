package handler

import (
	"net/http"
	"strings"

	"github.com/pion/webrtc/v4"
)

// ICEHandler publishes the STUN/TURN servers clients should hand to their
// peer connection.
type ICEHandler struct {
	servers []webrtc.ICEServer
}

func NewICEHandler(urls []string, turnUsername, turnCredential string) *ICEHandler {
	return &ICEHandler{servers: BuildICEServers(urls, turnUsername, turnCredential)}
}

// BuildICEServers groups STUN urls into one entry and TURN urls into a
// second entry carrying the credentials.
func BuildICEServers(urls []string, turnUsername, turnCredential string) []webrtc.ICEServer {
	var stun, turn []string
	for _, u := range urls {
		u = strings.TrimSpace(u)
		switch {
		case u == "":
		case strings.HasPrefix(u, "turn:"), strings.HasPrefix(u, "turns:"):
			turn = append(turn, u)
		default:
			stun = append(stun, u)
		}
	}

	servers := make([]webrtc.ICEServer, 0, 2)
	if len(stun) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: stun})
	}
	if len(turn) > 0 {
		server := webrtc.ICEServer{URLs: turn, Username: turnUsername}
		if turnCredential != "" {
			server.Credential = turnCredential
		}
		servers = append(servers, server)
	}
	return servers
}

func (h *ICEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"iceServers": h.servers})
}
