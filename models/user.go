package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/clearexpress/brokerage_backend/config"
	"bitbucket.org/clearexpress/brokerage_backend/utils"
)

type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Username  string    `gorm:"size:100;not null;unique" json:"username" binding:"required"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Email     *string   `gorm:"size:100;unique" json:"email"`
	Phone     string    `gorm:"size:20" json:"phone"`
	Password  string    `gorm:"size:255;not null" json:"password"`
	IsActive  *bool     `gorm:"not null" json:"is_active"`
	Role      UserRole  `gorm:"type:enum('A', 'B');default:B" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Username string   `json:"username" binding:"required"`
	Name     string   `json:"name" binding:"required"`
	Email    string   `json:"email"`
	Phone    string   `json:"phone"`
	Password string   `json:"password" binding:"required"`
	Role     UserRole `json:"role"`
}

/*
caches:

	User:$username
	Token:$token -> username
	Tokens:$username (set of live tokens)
*/

type LoginInfo struct {
	Token string `json:"token"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func (result *User) PrepareGive() {
	result.Password = ""
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {
	db := config.GetDB()

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = UserRoleBroker
	}

	user := User{
		Username: input.Username,
		Name:     input.Name,
		Phone:    input.Phone,
		Password: string(hashed),
		IsActive: utils.NewTrue(),
		Role:     role,
	}
	if input.Email != "" {
		if !utils.IsValidEmail(input.Email) {
			return nil, errors.New("invalid email")
		}
		user.Email = &input.Email
	}

	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Signin verifies credentials and registers a session token in redis.
func Signin(ctx context.Context, username string, password string) (*LoginInfo, error) {
	db := config.GetDB()

	var user User
	if err := db.WithContext(ctx).Where("username = ?", username).Take(&user).Error; err != nil {
		return nil, utils.ErrorUnauthorized
	}
	if user.IsActive == nil || !*user.IsActive {
		return nil, utils.ErrorUnauthorized
	}
	if err := utils.ComparePassword(user.Password, password); err != nil {
		return nil, utils.ErrorUnauthorized
	}

	token, err := utils.JwtGenerate(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}

	// session registry
	if err := config.SetRedisValue("Token:"+token, user.Username, utils.GetCacheLifespan()); err != nil {
		return nil, err
	}
	if err := config.AddRedisSet("Tokens:"+user.Username, token); err != nil {
		return nil, err
	}
	user.PrepareGive()
	if err := config.SetRedisObject("User:"+user.Username, &user, utils.GetCacheLifespan()); err != nil {
		return nil, err
	}

	return &LoginInfo{
		Token: token,
		Name:  user.Name,
		Role:  string(user.Role),
	}, nil
}

// Signout destroys the current session.
func Signout(ctx context.Context) (bool, error) {
	token, ok := utils.GetTokenFromContext(ctx)
	if !ok || token == "" {
		return false, errors.New("token is required")
	}
	err := config.RemoveRedisKey("Token:" + fmt.Sprint(token))
	if err != nil {
		return false, nil
	}
	// remove current token from tokens list
	username, ok := utils.GetUsernameFromContext(ctx)
	if !ok || username == "" {
		return false, errors.New("user not found")
	}
	if err := config.RemoveRedisSetMember("Tokens:"+username, token); err != nil {
		return false, err
	}
	return true, nil
}

// SignoutAll revokes every live session of the current user, including the
// one making the call.
func SignoutAll(ctx context.Context) (bool, error) {
	username, ok := utils.GetUsernameFromContext(ctx)
	if !ok || username == "" {
		return false, errors.New("user not found")
	}

	tokens, err := config.GetRedisSetMembers("Tokens:" + username)
	if err != nil {
		return false, err
	}
	keys := make([]string, 0, len(tokens)+2)
	for _, token := range tokens {
		keys = append(keys, "Token:"+token)
	}
	keys = append(keys, "Tokens:"+username, "User:"+username)
	if err := config.RemoveRedisKey(keys...); err != nil {
		return false, err
	}
	return true, nil
}

// GetSessionUser resolves the session identity set by the session middleware.
// Fails closed: no username in context, or no matching user row, means
// unauthorized. Every other operation calls this first and scopes reads and
// writes by the returned user's id.
func GetSessionUser(ctx context.Context) (*User, error) {
	username, ok := utils.GetUsernameFromContext(ctx)
	if !ok || username == "" {
		return nil, utils.ErrorUnauthorized
	}

	var user User
	exists, err := config.GetRedisObject("User:"+username, &user)
	if err != nil {
		return nil, err
	}
	if !exists {
		db := config.GetDB()
		if db == nil {
			return nil, errors.New("db is nil")
		}
		if err := db.WithContext(ctx).Model(&User{}).Where("username = ?", username).Take(&user).Error; err != nil {
			return nil, utils.ErrorUnauthorized
		}
	}
	if user.IsActive == nil || !*user.IsActive {
		return nil, utils.ErrorUnauthorized
	}
	return &user, nil
}
