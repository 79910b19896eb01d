package api

import (
	"context"

	"llmontreal/internal/model"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *Client) Login(ctx context.Context, username, password string) (*model.AuthResult, error) {
	var result model.AuthResult
	req := LoginRequest{Username: username, Password: password}
	if err := c.postJSON(ctx, "/auth/login", req, "login", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Register(ctx context.Context, username, email, password string) (*model.AuthResult, error) {
	var result model.AuthResult
	req := RegisterRequest{Username: username, Email: email, Password: password}
	if err := c.postJSON(ctx, "/auth/register", req, "register", &result); err != nil {
		return nil, err
	}
	return &result, nil
}
