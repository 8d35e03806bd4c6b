package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"tenanthub/internal/api"
	"tenanthub/internal/engine"
	"tenanthub/internal/messaging"
	"tenanthub/internal/middleware"
	"tenanthub/internal/models"
	"tenanthub/internal/storage/memory"
	"tenanthub/internal/utils"
	"tenanthub/internal/websocket"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
)

func newTestServer() *Server {
	store := memory.NewStore()
	metrics := utils.NewMetricsCollector()
	broker := messaging.NewBroker(metrics)
	system := actor.NewActorSystem()
	eng := engine.NewEngine(system, store, broker, metrics)
	hub := websocket.NewHub()
	go hub.Run()
	return NewServer(eng, broker, store, hub, metrics)
}

func register(t *testing.T, server *Server, name, email, role string) models.User {
	t.Helper()

	body, _ := json.Marshal(RegisterUserRequest{
		Name:     name,
		Email:    email,
		Password: "password123",
		Role:     role,
	})
	req := httptest.NewRequest("POST", "/auth/register", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.HandleRegister().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Registration failed with status %d: %s", w.Code, w.Body.String())
	}
	var user models.User
	json.Unmarshal(w.Body.Bytes(), &user)
	return user
}

func login(t *testing.T, server *Server, email string) string {
	t.Helper()

	body, _ := json.Marshal(LoginRequest{Email: email, Password: "password123"})
	req := httptest.NewRequest("POST", "/auth/login", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.HandleLogin().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Login failed with status %d: %s", w.Code, w.Body.String())
	}
	var resp api.LoginResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.Success || resp.Token == "" {
		t.Fatalf("Login did not return a token: %s", w.Body.String())
	}
	return resp.Token
}

func authedRequest(method, target, token string, payload interface{}) *http.Request {
	var body *bytes.Buffer
	if payload != nil {
		data, _ := json.Marshal(payload)
		body = bytes.NewBuffer(data)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestIntegrationFlow(t *testing.T) {
	server := newTestServer()
	conversationsHandler := middleware.ApplyJWTMiddleware(server.HandleConversations(), "/conversations")
	messagesHandler := middleware.ApplyJWTMiddleware(server.HandleMessages(), "/messages")

	// Step 1: Register a tenant and a landlord
	tenant := register(t, server, "Terry Tenant", "terry@test.com", models.RoleTenant)
	landlord := register(t, server, "Lana Landlord", "lana@test.com", models.RoleLandlord)
	t.Logf("Tenant %s, landlord %s", tenant.ID, landlord.ID)

	// Step 2: Log in as the tenant
	tenantToken := login(t, server, "terry@test.com")

	// Step 3: The tenant starts a conversation with the landlord
	w := httptest.NewRecorder()
	conversationsHandler.ServeHTTP(w, authedRequest("POST", "/conversations", tenantToken, CreateConversationRequest{
		ContactUserID:  landlord.ID,
		ContactDetails: models.ParticipantDetails{Name: landlord.Name, Email: landlord.Email, Avatar: landlord.Avatar},
	}))
	assert.Equal(t, http.StatusOK, w.Code)
	var createResp map[string]string
	json.Unmarshal(w.Body.Bytes(), &createResp)
	conversationID := createResp["id"]
	assert.NotEmpty(t, conversationID)
	t.Logf("Conversation created with ID: %s", conversationID)

	// Step 4: Creating it again returns the same conversation
	w = httptest.NewRecorder()
	conversationsHandler.ServeHTTP(w, authedRequest("POST", "/conversations", tenantToken, CreateConversationRequest{
		ContactUserID: landlord.ID,
	}))
	assert.Equal(t, http.StatusOK, w.Code)
	var repeatResp map[string]string
	json.Unmarshal(w.Body.Bytes(), &repeatResp)
	assert.Equal(t, conversationID, repeatResp["id"])

	// Step 5: Send a message
	w = httptest.NewRecorder()
	messagesHandler.ServeHTTP(w, authedRequest("POST", "/messages", tenantToken, SendMessageRequest{
		ConversationID: conversationID,
		Content:        "Is the apartment still available?",
	}))
	assert.Equal(t, http.StatusOK, w.Code)
	var sent models.Message
	json.Unmarshal(w.Body.Bytes(), &sent)
	assert.Equal(t, tenant.ID, sent.SenderID)
	assert.Equal(t, "Terry Tenant", sent.SenderName)

	// Step 6: The landlord sees the conversation with the preview
	landlordToken := login(t, server, "lana@test.com")
	w = httptest.NewRecorder()
	conversationsHandler.ServeHTTP(w, authedRequest("GET", "/conversations", landlordToken, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	var conversations []models.Conversation
	json.Unmarshal(w.Body.Bytes(), &conversations)
	if len(conversations) != 1 {
		t.Fatalf("Expected 1 conversation, got %d", len(conversations))
	}
	if assert.NotNil(t, conversations[0].LastMessage) {
		assert.Equal(t, "Is the apartment still available?", conversations[0].LastMessage.Content)
	}

	// Step 7: The feed returns the message
	w = httptest.NewRecorder()
	messagesHandler.ServeHTTP(w, authedRequest("GET", "/messages?conversationId="+conversationID, landlordToken, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	var messages []models.Message
	json.Unmarshal(w.Body.Bytes(), &messages)
	assert.Len(t, messages, 1)
}

func TestDuplicateRegistrationRejected(t *testing.T) {
	server := newTestServer()

	register(t, server, "Terry Tenant", "terry@test.com", models.RoleTenant)

	body, _ := json.Marshal(RegisterUserRequest{
		Name:     "Terry Again",
		Email:    "terry@test.com",
		Password: "password123",
	})
	req := httptest.NewRequest("POST", "/auth/register", bytes.NewBuffer(body))
	w := httptest.NewRecorder()
	server.HandleRegister().ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLoginInvalidCredentials(t *testing.T) {
	server := newTestServer()
	register(t, server, "Terry Tenant", "terry@test.com", models.RoleTenant)

	body, _ := json.Marshal(LoginRequest{Email: "terry@test.com", Password: "wrongpassword"})
	req := httptest.NewRequest("POST", "/auth/login", bytes.NewBuffer(body))
	w := httptest.NewRecorder()
	server.HandleLogin().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var resp api.LoginResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.False(t, resp.Success)
	assert.Equal(t, "Invalid credentials", resp.Error)
}

func TestConversationsRequireAuth(t *testing.T) {
	server := newTestServer()
	handler := middleware.ApplyJWTMiddleware(server.HandleConversations(), "/conversations")

	req := httptest.NewRequest("GET", "/conversations", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSelfConversationRejectedOverHTTP(t *testing.T) {
	server := newTestServer()
	handler := middleware.ApplyJWTMiddleware(server.HandleConversations(), "/conversations")

	tenant := register(t, server, "Terry Tenant", "terry@test.com", models.RoleTenant)
	token := login(t, server, "terry@test.com")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, authedRequest("POST", "/conversations", token, CreateConversationRequest{
		ContactUserID: tenant.ID,
	}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, utils.ErrSelfConversation, resp["code"])
}

func TestSendToUnknownTypeRejected(t *testing.T) {
	server := newTestServer()
	conversationsHandler := middleware.ApplyJWTMiddleware(server.HandleConversations(), "/conversations")
	messagesHandler := middleware.ApplyJWTMiddleware(server.HandleMessages(), "/messages")

	register(t, server, "Terry Tenant", "terry@test.com", models.RoleTenant)
	landlord := register(t, server, "Lana Landlord", "lana@test.com", models.RoleLandlord)
	token := login(t, server, "terry@test.com")

	w := httptest.NewRecorder()
	conversationsHandler.ServeHTTP(w, authedRequest("POST", "/conversations", token, CreateConversationRequest{
		ContactUserID: landlord.ID,
	}))
	var createResp map[string]string
	json.Unmarshal(w.Body.Bytes(), &createResp)

	w = httptest.NewRecorder()
	messagesHandler.ServeHTTP(w, authedRequest("POST", "/messages", token, SendMessageRequest{
		ConversationID: createResp["id"],
		Content:        "clip.mp4",
		Type:           "video",
	}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, utils.ErrInvalidMessageType, resp["code"])
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer()

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	server.HandleHealth().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, "healthy", resp["status"])
}
