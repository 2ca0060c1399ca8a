// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package session holds the session model the inference engine uses to run
// eval cases. Evaluation sessions are transient: they exist for one case run
// and carry a distinctive id prefix so they can be filtered out of
// production session storage.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EvalIDPrefix marks sessions created by the evaluation core.
const EvalIDPrefix = "___eval___"

// NewEvalSessionID returns a fresh session id with the evaluation prefix.
func NewEvalSessionID() string {
	return EvalIDPrefix + uuid.NewString()
}

// IsEvalSessionID reports whether a session id was created for evaluation.
func IsEvalSessionID(id string) bool {
	return strings.HasPrefix(id, EvalIDPrefix)
}

// Session is a series of interactions between a user and agents.
type Session struct {
	ID      string
	AppName string
	UserID  string

	State   map[string]any
	Updated time.Time
}

// Service abstracts session storage.
type Service interface {
	// Create creates and returns a new session. It fails if the session
	// already exists.
	Create(ctx context.Context, req *CreateRequest) (*Session, error)
	// Get returns the requested session, or an error if it does not exist.
	Get(ctx context.Context, appName, userID, sessionID string) (*Session, error)
	// Delete deletes the requested session.
	Delete(ctx context.Context, appName, userID, sessionID string) error
}

// CreateRequest is the request for Service's Create.
type CreateRequest struct {
	// Required.
	AppName, UserID string

	// If unset, the service assigns a new id.
	SessionID string
	// State optionally seeds the initial session state.
	State map[string]any
}

// InMemoryService is a Service backed by process memory.
type InMemoryService struct {
	mu       sync.RWMutex
	sessions map[string]*Session // keyed by appName/userID/sessionID
}

// NewInMemoryService creates an empty in-memory session service.
func NewInMemoryService() *InMemoryService {
	return &InMemoryService{sessions: make(map[string]*Session)}
}

func sessionKey(appName, userID, sessionID string) string {
	return appName + "/" + userID + "/" + sessionID
}

// Create implements Service.
func (s *InMemoryService) Create(ctx context.Context, req *CreateRequest) (*Session, error) {
	if req.AppName == "" || req.UserID == "" {
		return nil, fmt.Errorf("app name and user id are required")
	}
	id := req.SessionID
	if id == "" {
		id = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := sessionKey(req.AppName, req.UserID, id)
	if _, ok := s.sessions[key]; ok {
		return nil, fmt.Errorf("session %s already exists", id)
	}
	state := make(map[string]any, len(req.State))
	for k, v := range req.State {
		state[k] = v
	}
	sess := &Session{
		ID:      id,
		AppName: req.AppName,
		UserID:  req.UserID,
		State:   state,
		Updated: time.Now(),
	}
	s.sessions[key] = sess
	return sess, nil
}

// Get implements Service.
func (s *InMemoryService) Get(ctx context.Context, appName, userID, sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionKey(appName, userID, sessionID)]
	if !ok {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}
	return sess, nil
}

// Delete implements Service.
func (s *InMemoryService) Delete(ctx context.Context, appName, userID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sessionKey(appName, userID, sessionID)
	if _, ok := s.sessions[key]; !ok {
		return fmt.Errorf("session %s not found", sessionID)
	}
	delete(s.sessions, key)
	return nil
}
