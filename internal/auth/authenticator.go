package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Errors for authentication and authorization operations.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked due to failed login attempts")
	ErrPasswordTooShort   = errors.New("password does not meet minimum length requirement")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrSessionExpired     = errors.New("session expired")
	ErrNoCredentials      = errors.New("no credentials provided")
	ErrMissingSecret      = errors.New("JWT secret not configured")
	ErrNoRoleInSpace      = errors.New("user has no role in this space")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrCannotGrantRole    = errors.New("granter's role does not permit granting the target role")
)

// User represents an authenticated account. Unlike a flat RBAC model,
// roles here are bound per-space: a user can be Dba in one space and
// Guest (or nothing) in another. A God binding lives under
// GodSpaceID and applies everywhere.
type User struct {
	ID           string            `json:"id"`
	Username     string            `json:"username"`
	Email        string            `json:"email,omitempty"`
	PasswordHash string            `json:"-"`
	Roles        map[int64]Role    `json:"roles"` // space id (or GodSpaceID) -> role
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	LastLogin    time.Time         `json:"last_login,omitempty"`
	FailedLogins int               `json:"-"`
	LockedUntil  time.Time         `json:"-"`
	Disabled     bool              `json:"disabled,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// RoleIn returns the role bound to the user in space, false if none.
func (u *User) RoleIn(space int64) (Role, bool) {
	r, ok := u.Roles[space]
	return r, ok
}

// IsGod reports whether the user holds a God binding.
func (u *User) IsGod() bool {
	r, ok := u.Roles[GodSpaceID]
	return ok && r == RoleGod
}

// JWTClaims carries the subset of a JWT token this engine relies on.
type JWTClaims struct {
	Sub      string           `json:"sub"`
	Email    string           `json:"email,omitempty"`
	Username string           `json:"username,omitempty"`
	Roles    map[string]string `json:"roles"` // space id (string-encoded) -> role name
	Iat      int64            `json:"iat"`
	Exp      int64            `json:"exp,omitempty"`
}

// TokenResponse follows OAuth 2.0 RFC 6749 token response format.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
	Scope       string `json:"scope,omitempty"`
}

// Config holds authentication configuration.
type Config struct {
	MinPasswordLength int
	BcryptCost        int

	JWTSecret   []byte
	TokenExpiry time.Duration // 0 = never expire

	MaxFailedLogins int
	LockoutDuration time.Duration

	SecurityEnabled bool

	// PermissionCacheTTL bounds how long a check_permission result is
	// cached; 0 disables caching.
	PermissionCacheTTL time.Duration
}

// DefaultConfig returns sane defaults for Config.
func DefaultConfig() Config {
	return Config{
		MinPasswordLength:  8,
		BcryptCost:         bcrypt.DefaultCost,
		TokenExpiry:        0,
		MaxFailedLogins:    5,
		LockoutDuration:    15 * time.Minute,
		SecurityEnabled:    true,
		PermissionCacheTTL: 5 * time.Second,
	}
}

// Authenticator manages users, role bindings and authentication, with
// a PermissionCache fronting check_permission on the hot path.
type Authenticator struct {
	mu     sync.RWMutex
	users  map[string]*User // keyed by username
	config Config
	cache  *PermissionCache

	auditLog func(event AuditEvent)
}

// AuditEvent is an authentication/authorization event for compliance logging.
type AuditEvent struct {
	Timestamp   time.Time `json:"timestamp"`
	EventType   string    `json:"event_type"`
	Username    string    `json:"username,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
	IPAddress   string    `json:"ip_address,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
	Success     bool      `json:"success"`
	Details     string    `json:"details,omitempty"`
	RequestPath string    `json:"request_path,omitempty"`
}

// NewAuthenticator creates an Authenticator with no users; a God
// account is added like any other, through CreateUser.
func NewAuthenticator(config Config) (*Authenticator, error) {
	if config.SecurityEnabled && len(config.JWTSecret) == 0 {
		return nil, ErrMissingSecret
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	if config.MinPasswordLength == 0 {
		config.MinPasswordLength = 8
	}
	if config.MaxFailedLogins == 0 {
		config.MaxFailedLogins = 5
	}
	if config.LockoutDuration == 0 {
		config.LockoutDuration = 15 * time.Minute
	}

	a := &Authenticator{
		users:  make(map[string]*User),
		config: config,
		cache:  NewPermissionCache(config.PermissionCacheTTL),
	}
	return a, nil
}

// SetAuditLogger sets the audit logging callback.
func (a *Authenticator) SetAuditLogger(fn func(AuditEvent)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.auditLog = fn
}

func (a *Authenticator) logAudit(event AuditEvent) {
	if a.auditLog != nil {
		event.Timestamp = time.Now()
		a.auditLog(event)
	}
}

// CreateUser creates a user with an initial role binding. Pass
// GodSpaceID as space to create a global binding (God role only is
// meaningful there, but the call does not itself enforce that; callers
// should route grants through GrantRole, which does).
func (a *Authenticator) CreateUser(username, password string, space int64, role Role) (*User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.users[username]; exists {
		a.logAudit(AuditEvent{EventType: "user_create", Username: username, Success: false, Details: "user already exists"})
		return nil, ErrUserExists
	}
	if len(password) < a.config.MinPasswordLength {
		return nil, fmt.Errorf("%w: minimum %d characters required", ErrPasswordTooShort, a.config.MinPasswordLength)
	}
	if !ValidRole(role) {
		return nil, fmt.Errorf("invalid role: %s", role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &User{
		ID:           generateID(),
		Username:     username,
		Email:        username + "@localhost",
		PasswordHash: string(hash),
		Roles:        map[int64]Role{space: role},
		CreatedAt:    now,
		UpdatedAt:    now,
		Metadata:     make(map[string]string),
	}
	a.users[username] = user

	a.logAudit(AuditEvent{EventType: "user_create", Username: username, UserID: user.ID, Success: true,
		Details: fmt.Sprintf("created with role %s in space %d", role, space)})

	return a.copyUserSafe(user), nil
}

// GrantRole binds role to target in space, provided granter already
// holds a role in that space (or globally, as God) capable of
// granting it.
func (a *Authenticator) GrantRole(granter, target string, space int64, role Role) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	granterUser, ok := a.users[granter]
	if !ok {
		return ErrUserNotFound
	}
	targetUser, ok := a.users[target]
	if !ok {
		return ErrUserNotFound
	}
	if !a.canGrantLocked(granterUser, space, role) {
		return ErrCannotGrantRole
	}

	if targetUser.Roles == nil {
		targetUser.Roles = make(map[int64]Role)
	}
	targetUser.Roles[space] = role
	targetUser.UpdatedAt = time.Now()
	a.cache.InvalidateUser(target)

	a.logAudit(AuditEvent{EventType: "role_grant", Username: target, UserID: targetUser.ID, Success: true,
		Details: fmt.Sprintf("granted %s in space %d by %s", role, space, granter)})
	return nil
}

// RevokeRole removes target's binding in space, subject to the same
// CanGrant authority check as GrantRole.
func (a *Authenticator) RevokeRole(revoker, target string, space int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	revokerUser, ok := a.users[revoker]
	if !ok {
		return ErrUserNotFound
	}
	targetUser, ok := a.users[target]
	if !ok {
		return ErrUserNotFound
	}
	current, hasCurrent := targetUser.Roles[space]
	if !hasCurrent {
		return nil
	}
	if !a.canGrantLocked(revokerUser, space, current) {
		return ErrCannotGrantRole
	}

	delete(targetUser.Roles, space)
	targetUser.UpdatedAt = time.Now()
	a.cache.InvalidateUser(target)

	a.logAudit(AuditEvent{EventType: "role_revoke", Username: target, UserID: targetUser.ID, Success: true,
		Details: fmt.Sprintf("revoked in space %d by %s", space, revoker)})
	return nil
}

func (a *Authenticator) canGrantLocked(granter *User, space int64, target Role) bool {
	if granter.IsGod() {
		return target != RoleGod
	}
	if r, ok := granter.Roles[space]; ok && r.CanGrant(target) {
		return true
	}
	return false
}

// CheckPermission implements check_permission(user, space_id,
// Permission): God's binding applies globally; otherwise the user's
// binding in the requested space must grant the permission. Results
// are served from the PermissionCache when fresh.
func (a *Authenticator) CheckPermission(username string, space int64, perm Permission) error {
	if cached, ok := a.cache.Get(username, space, perm); ok {
		if cached {
			return nil
		}
		return ErrPermissionDenied
	}

	a.mu.RLock()
	user, ok := a.users[username]
	a.mu.RUnlock()
	if !ok {
		return ErrUserNotFound
	}

	allowed := a.evaluatePermission(user, space, perm)
	a.cache.Put(username, space, perm, allowed)
	if !allowed {
		return ErrPermissionDenied
	}
	return nil
}

func (a *Authenticator) evaluatePermission(user *User, space int64, perm Permission) bool {
	if user.IsGod() {
		return true
	}
	if r, ok := user.Roles[space]; ok {
		return r.HasPermission(perm)
	}
	return false
}

// CanWriteSpace reports whether username may create or drop spaces —
// reserved to God, matching the original server's space-management
// policy.
func (a *Authenticator) CanWriteSpace(username string) error {
	a.mu.RLock()
	user, ok := a.users[username]
	a.mu.RUnlock()
	if !ok {
		return ErrUserNotFound
	}
	if !user.IsGod() {
		return fmt.Errorf("%w: only the God role may create or drop spaces", ErrPermissionDenied)
	}
	return nil
}

// Authenticate verifies credentials and issues a JWT.
func (a *Authenticator) Authenticate(username, password, ipAddress, userAgent string) (*TokenResponse, *User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	user, exists := a.users[username]
	if !exists {
		a.logAudit(AuditEvent{EventType: "login", Username: username, IPAddress: ipAddress, UserAgent: userAgent, Success: false, Details: "user not found"})
		return nil, nil, ErrInvalidCredentials
	}

	if !user.LockedUntil.IsZero() && time.Now().Before(user.LockedUntil) {
		a.logAudit(AuditEvent{EventType: "login", Username: username, UserID: user.ID, IPAddress: ipAddress, UserAgent: userAgent, Success: false, Details: "account locked"})
		return nil, nil, ErrAccountLocked
	}
	if user.Disabled {
		a.logAudit(AuditEvent{EventType: "login", Username: username, UserID: user.ID, IPAddress: ipAddress, UserAgent: userAgent, Success: false, Details: "account disabled"})
		return nil, nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		user.FailedLogins++
		if user.FailedLogins >= a.config.MaxFailedLogins {
			user.LockedUntil = time.Now().Add(a.config.LockoutDuration)
		}
		user.UpdatedAt = time.Now()
		a.logAudit(AuditEvent{EventType: "login", Username: username, UserID: user.ID, IPAddress: ipAddress, UserAgent: userAgent, Success: false,
			Details: fmt.Sprintf("invalid password (attempt %d/%d)", user.FailedLogins, a.config.MaxFailedLogins)})
		return nil, nil, ErrInvalidCredentials
	}

	user.FailedLogins = 0
	user.LockedUntil = time.Time{}
	user.LastLogin = time.Now()
	user.UpdatedAt = time.Now()

	token, err := a.generateJWT(user)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate token: %w", err)
	}

	response := &TokenResponse{AccessToken: token, TokenType: "Bearer", Scope: "default"}
	if a.config.TokenExpiry > 0 {
		response.ExpiresIn = int64(a.config.TokenExpiry.Seconds())
	}

	a.logAudit(AuditEvent{EventType: "login", Username: username, UserID: user.ID, IPAddress: ipAddress, UserAgent: userAgent, Success: true, Details: "token generated"})
	return response, a.copyUserSafe(user), nil
}

// ValidateToken verifies a JWT and returns its claims.
func (a *Authenticator) ValidateToken(token string) (*JWTClaims, error) {
	if !a.config.SecurityEnabled {
		return &JWTClaims{Sub: "anonymous", Roles: map[string]string{"-1": string(RoleGod)}}, nil
	}
	if token == "" {
		return nil, ErrNoCredentials
	}
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	return a.verifyJWT(token)
}

// GetUser returns user info without sensitive fields.
func (a *Authenticator) GetUser(username string) (*User, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	user, exists := a.users[username]
	if !exists {
		return nil, ErrUserNotFound
	}
	return a.copyUserSafe(user), nil
}

// ListUsers returns every user without sensitive fields.
func (a *Authenticator) ListUsers() []*User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	users := make([]*User, 0, len(a.users))
	for _, u := range a.users {
		users = append(users, a.copyUserSafe(u))
	}
	return users
}

// DisableUser suspends an account.
func (a *Authenticator) DisableUser(username string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	user, exists := a.users[username]
	if !exists {
		return ErrUserNotFound
	}
	user.Disabled = true
	user.UpdatedAt = time.Now()
	a.logAudit(AuditEvent{EventType: "user_disable", Username: username, UserID: user.ID, Success: true})
	return nil
}

// EnableUser re-enables a disabled account and clears lockout state.
func (a *Authenticator) EnableUser(username string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	user, exists := a.users[username]
	if !exists {
		return ErrUserNotFound
	}
	user.Disabled = false
	user.FailedLogins = 0
	user.LockedUntil = time.Time{}
	user.UpdatedAt = time.Now()
	a.logAudit(AuditEvent{EventType: "user_enable", Username: username, UserID: user.ID, Success: true})
	return nil
}

// UserCount returns the number of registered users.
func (a *Authenticator) UserCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.users)
}

// generateJWT builds an HS256 JWT for user.
func (a *Authenticator) generateJWT(user *User) (string, error) {
	if len(a.config.JWTSecret) == 0 {
		return "", ErrMissingSecret
	}
	now := time.Now().Unix()

	roles := make(map[string]string, len(user.Roles))
	for space, role := range user.Roles {
		roles[fmt.Sprintf("%d", space)] = string(role)
	}

	claims := JWTClaims{Sub: user.ID, Email: user.Email, Username: user.Username, Roles: roles, Iat: now}
	if a.config.TokenExpiry > 0 {
		claims.Exp = now + int64(a.config.TokenExpiry.Seconds())
	}

	return signClaims(claims, a.config.JWTSecret)
}

func signClaims(claims JWTClaims, secret []byte) (string, error) {
	header := map[string]string{"alg": "HS256", "typ": "JWT"}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", err
	}
	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	headerB64 := base64.RawURLEncoding.EncodeToString(headerJSON)
	claimsB64 := base64.RawURLEncoding.EncodeToString(claimsJSON)

	message := headerB64 + "." + claimsB64
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(message))
	signature := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return message + "." + signature, nil
}

// verifyJWT validates signature and expiry, returning the claims.
func (a *Authenticator) verifyJWT(token string) (*JWTClaims, error) {
	if len(a.config.JWTSecret) == 0 {
		return nil, ErrMissingSecret
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrInvalidToken
	}

	message := parts[0] + "." + parts[1]
	mac := hmac.New(sha256.New, a.config.JWTSecret)
	mac.Write([]byte(message))
	expectedSig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	if !SecureCompare(parts[2], expectedSig) {
		return nil, ErrInvalidToken
	}

	claimsJSON, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ErrInvalidToken
	}
	var claims JWTClaims
	if err := json.Unmarshal(claimsJSON, &claims); err != nil {
		return nil, ErrInvalidToken
	}
	if claims.Exp > 0 && time.Now().Unix() > claims.Exp {
		return nil, ErrSessionExpired
	}
	return &claims, nil
}

func (a *Authenticator) copyUserSafe(u *User) *User {
	roles := make(map[int64]Role, len(u.Roles))
	for k, v := range u.Roles {
		roles[k] = v
	}
	metadata := make(map[string]string, len(u.Metadata))
	for k, v := range u.Metadata {
		metadata[k] = v
	}
	return &User{
		ID: u.ID, Username: u.Username, Email: u.Email, Roles: roles,
		CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt, LastLogin: u.LastLogin,
		Disabled: u.Disabled, Metadata: metadata,
	}
}

func generateID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// SecureCompare performs a constant-time string comparison, preventing
// timing attacks on token/signature validation.
func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
