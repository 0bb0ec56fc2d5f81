package client

import (
	"context"
	"net/http"
)

// User mirrors the server's user document (password hash never leaves the
// server).
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Avatar    string `json:"avatar"`
	Role      string `json:"role"`
	CreatedAt int64  `json:"createdAt"`
}

type Session struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

type Journal struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Mood      string `json:"mood,omitempty"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

type MoodEntry struct {
	ID        string `json:"id"`
	Score     int    `json:"score"`
	Label     string `json:"label"`
	Note      string `json:"note,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

// Signup registers a new account and stores the returned credential pair.
func (c *Client) Signup(ctx context.Context, email, password, name string) (Session, error) {
	var session Session
	err := c.Do(ctx, http.MethodPost, "/api/auth/signup",
		map[string]string{"email": email, "password": password, "name": name},
		&session, SkipAuth())
	if err != nil {
		return Session{}, err
	}
	return session, c.store.Save(Credentials{
		AccessToken:  session.Token,
		RefreshToken: session.RefreshToken,
	})
}

// Login authenticates and stores the returned credential pair.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	var session Session
	err := c.Do(ctx, http.MethodPost, "/api/auth/login",
		map[string]string{"email": email, "password": password},
		&session, SkipAuth())
	if err != nil {
		return Session{}, err
	}
	return session, c.store.Save(Credentials{
		AccessToken:  session.Token,
		RefreshToken: session.RefreshToken,
	})
}

// Logout revokes the refresh token server-side and clears the local store.
func (c *Client) Logout(ctx context.Context) error {
	creds, err := c.store.Load()
	if err != nil {
		return err
	}
	if creds.RefreshToken != "" {
		err = c.Do(ctx, http.MethodPost, "/api/auth/logout",
			map[string]string{"refreshToken": creds.RefreshToken}, nil)
	}
	if clearErr := c.store.Clear(); clearErr != nil {
		return clearErr
	}
	return err
}

func (c *Client) Me(ctx context.Context) (User, error) {
	var user User
	err := c.Do(ctx, http.MethodGet, "/api/users/me", nil, &user)
	return user, err
}

func (c *Client) CreateJournal(ctx context.Context, title, content, mood string) (Journal, error) {
	var journal Journal
	err := c.Do(ctx, http.MethodPost, "/api/journals",
		map[string]string{"title": title, "content": content, "mood": mood}, &journal)
	return journal, err
}

func (c *Client) ListJournals(ctx context.Context) ([]Journal, error) {
	var journals []Journal
	err := c.Do(ctx, http.MethodGet, "/api/journals", nil, &journals)
	return journals, err
}

func (c *Client) LogMood(ctx context.Context, score int, label, note string) (MoodEntry, error) {
	var entry MoodEntry
	err := c.Do(ctx, http.MethodPost, "/api/moods",
		map[string]interface{}{"score": score, "label": label, "note": note}, &entry)
	return entry, err
}

// ListResources fetches the resource library. Public, no credential needed.
func (c *Client) ListResources(ctx context.Context) ([]Resource, error) {
	var resources []Resource
	err := c.Do(ctx, http.MethodGet, "/api/resources", nil, &resources, SkipAuth())
	return resources, err
}

// ViewResource counts one view and returns the server's new total.
func (c *Client) ViewResource(ctx context.Context, resourceID string) (int64, error) {
	var resp struct {
		ViewCount int64 `json:"viewCount"`
	}
	err := c.Do(ctx, http.MethodPost, "/api/resources/"+resourceID+"/view", nil, &resp)
	return resp.ViewCount, err
}

// MarkHelpful reports a like (true) or unlike (false) and returns the
// server's new total.
func (c *Client) MarkHelpful(ctx context.Context, resourceID string, helpful bool) (int64, error) {
	var resp struct {
		HelpfulCount int64 `json:"helpfulCount"`
	}
	err := c.Do(ctx, http.MethodPost, "/api/resources/"+resourceID+"/helpful",
		map[string]bool{"helpful": helpful}, &resp)
	return resp.HelpfulCount, err
}

// ToggleHelpful flips the local liked-set for the resource optimistically
// and confirms the flip with the server, rolling back on failure.
func (c *Client) ToggleHelpful(ctx context.Context, set *LikedSet, resourceID string) (bool, ToggleState, error) {
	return set.Toggle(ctx, resourceID, func(ctx context.Context, liked bool) error {
		_, err := c.MarkHelpful(ctx, resourceID, liked)
		return err
	})
}
