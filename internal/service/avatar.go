package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/gabriel-vasile/mimetype"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// MaxAvatarSize is the biggest avatar upload accepted, in bytes.
const MaxAvatarSize = 2 << 20

var avatarTypes = []string{"image/png", "image/jpeg", "image/webp", "image/gif"}

// AvatarStorage puts avatar images somewhere publicly reachable.
type AvatarStorage interface {
	// Upload stores body under key and returns its public URL.
	Upload(ctx context.Context, key, contentType string, body io.ReadSeeker) (string, error)
}

// UploadAvatar stores an image as the user's avatar and links it to the
// profile.
func (s *AuthService) UploadAvatar(ctx context.Context, id uint, r io.Reader) (string, error) {
	if s.avatars == nil {
		return "", ErrStorageNotConfigured
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxAvatarSize+1))
	if err != nil {
		return "", internal(err)
	}

	if len(data) == 0 || len(data) > MaxAvatarSize {
		return "", ErrUnsupportedFile
	}

	mtype := mimetype.Detect(data)
	if !slices.Contains(avatarTypes, mtype.String()) {
		return "", ErrUnsupportedFile
	}

	u, err := findUser(s.store.FindUserByID(ctx, id))
	if err != nil {
		return "", err
	}

	suffix, err := gonanoid.New(12)
	if err != nil {
		return "", internal(err)
	}

	key := fmt.Sprintf("avatars/%s/%s%s", u.UUID, suffix, mtype.Extension())

	url, err := s.avatars.Upload(ctx, key, mtype.String(), bytes.NewReader(data))
	if err != nil {
		return "", internal(err)
	}

	if err := s.UpdateUser(ctx, id, UpdateInput{Avatar: &url}); err != nil {
		return "", err
	}

	return url, nil
}
