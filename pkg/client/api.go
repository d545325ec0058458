package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/sync/errgroup"
)

// Register creates an account and signs in as it
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", req, &resp); err != nil {
		return nil, err
	}
	return c.signIn(resp)
}

// Login signs in with email and password
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var resp authResponse
	in := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", in, &resp); err != nil {
		return nil, err
	}
	return c.signIn(resp)
}

func (c *Client) signIn(resp authResponse) (*Session, error) {
	if resp.Token == "" {
		return nil, errors.New("server returned no token")
	}
	session := &Session{Token: resp.Token, User: resp.User}
	if err := c.setSession(session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	return c.Session(), nil
}

// Logout revokes the token on the server and forgets the session
func (c *Client) Logout(ctx context.Context) error {
	token := c.token()
	if token == "" {
		return nil
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	if errors.Is(err, ErrSessionExpired) {
		return nil
	}
	if err != nil {
		return err
	}
	return c.clearSession(token)
}

// Me fetches the caller's account and refreshes the session snapshot
func (c *Client) Me(ctx context.Context) (*User, error) {
	token := c.token()
	if token == "" {
		return nil, ErrNotSignedIn
	}
	var user User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		return nil, err
	}
	if err := c.updateUser(token, &user); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	return &user, nil
}

// ForgotPassword asks the server to mail a reset code
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	var resp messageResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": email}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// ResetPassword sets a new password using the mailed code
func (c *Client) ResetPassword(ctx context.Context, email, code, newPassword string) (string, error) {
	in := map[string]string{"email": email, "token": code, "newPassword": newPassword}
	var resp messageResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/reset-password", in, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Courses lists the catalog
func (c *Client) Courses(ctx context.Context) ([]*Course, error) {
	var courses []*Course
	if err := c.do(ctx, http.MethodGet, "/api/courses", nil, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

// Course fetches one course
func (c *Client) Course(ctx context.Context, id string) (*Course, error) {
	var course Course
	if err := c.do(ctx, http.MethodGet, "/api/courses/"+url.PathEscape(id), nil, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

// BuyCourse enrolls the caller in a course. Buying an owned course is a no-op.
func (c *Client) BuyCourse(ctx context.Context, courseID string) error {
	if c.token() == "" {
		return ErrNotSignedIn
	}
	return c.do(ctx, http.MethodPost, "/api/courses/buy", map[string]string{"courseId": courseID}, nil)
}

// RecordProgress stores how many videos of an owned course were watched
func (c *Client) RecordProgress(ctx context.Context, courseID string, watched int) (*CourseProgress, error) {
	if c.token() == "" {
		return nil, ErrNotSignedIn
	}
	var resp struct {
		Progress CourseProgress `json:"progress"`
	}
	in := map[string]int{"number_of_videos_watched": watched}
	if err := c.do(ctx, http.MethodPost, "/api/courses/"+url.PathEscape(courseID)+"/progress", in, &resp); err != nil {
		return nil, err
	}
	return &resp.Progress, nil
}

// CourseDetail reads the course and the caller's account concurrently and
// reports whether the caller owns the course. Signed-out callers get the
// course with Owned false.
func (c *Client) CourseDetail(ctx context.Context, id string) (*CourseDetail, error) {
	var (
		course *Course
		user   *User
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		course, err = c.Course(gctx, id)
		return err
	})
	if c.token() != "" {
		g.Go(func() error {
			var err error
			user, err = c.Me(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	detail := &CourseDetail{Course: course}
	if progress, ok := user.Progress(course.ID); ok {
		detail.Owned = true
		detail.Progress = progress
	}
	return detail, nil
}
