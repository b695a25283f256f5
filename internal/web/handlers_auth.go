package web

import (
	"encoding/json"
	"net/http"

	"github.com/JonMunkholm/insightdesk/internal/logging"
)

type loginRequest struct {
	MailID     string `json:"mail_id"`
	EmployeeID string `json:"employee_id"`
}

type loginUser struct {
	MailID string `json:"mail_id"`
}

type loginResponse struct {
	Message string     `json:"message"`
	User    *loginUser `json:"user,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeJSONStatus(w, r, http.StatusBadRequest, loginResponse{Message: "Malformed login request"})
		return
	}

	if s.deps.Directory == nil || !s.deps.Directory.Verify(req.MailID, req.EmployeeID) {
		logging.FromContext(r.Context()).Warn("login rejected", "ip", clientAddr(r))
		writeJSONStatus(w, r, http.StatusUnauthorized, loginResponse{Message: "Invalid credentials"})
		return
	}

	writeJSON(w, r, loginResponse{
		Message: "Login successful",
		User:    &loginUser{MailID: req.MailID},
	})
}
