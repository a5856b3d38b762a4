package helpers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const (
	ResourceFolder = "resources"
	DateLayout     = "2006-01-02"
)

var ErrInvalidID = errors.New("invalid id format")

func IsPasswordStrong(password string) bool {
	if len(password) < 8 {
		return false
	}
	hasLower := regexp.MustCompile(`[a-z]`).MatchString(password)
	hasUpper := regexp.MustCompile(`[A-Z]`).MatchString(password)
	hasNumber := regexp.MustCompile(`\d`).MatchString(password)
	return hasLower && hasUpper && hasNumber
}

func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ParseObjectID accepts ids that clients sometimes send quoted or padded.
func ParseObjectID(raw string) (primitive.ObjectID, error) {
	id := strings.Trim(strings.TrimSpace(raw), "\"'")
	if id == "" {
		return primitive.NilObjectID, ErrInvalidID
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return oid, nil
}

// ParseDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("date is required")
	}
	if t, err := time.Parse(DateLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC3339", raw)
	}
	return t, nil
}

// StartOfDayUTC truncates t to midnight UTC of the calendar day it falls on in UTC.
func StartOfDayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DecodeDataURL returns the payload of a base64 data URL such as the ones
// produced by QRDataURL.
func DecodeDataURL(dataURL string) ([]byte, string, error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return nil, "", errors.New("not a data url")
	}
	meta, payload, ok := strings.Cut(strings.TrimPrefix(dataURL, "data:"), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, "", errors.New("data url is not base64 encoded")
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("invalid data url payload: %w", err)
	}
	return raw, strings.TrimSuffix(meta, ";base64"), nil
}

func UploadImages(ctx context.Context, cld *cloudinary.Cloudinary, images []string, folder string) ([]string, error) {
	if cld == nil {
		return nil, errors.New("cloudinary is not configured")
	}

	urls := make([]string, 0, len(images))
	for _, src := range images {
		if strings.TrimSpace(src) == "" {
			continue
		}
		uploadResult, err := cld.Upload.Upload(ctx, src, uploader.UploadParams{
			Folder: folder,
			Tags:   []string{"unibook"},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to upload image: %w", err)
		}
		if uploadResult.Error.Message != "" {
			return nil, fmt.Errorf("failed to upload image: %s", uploadResult.Error.Message)
		}
		urls = append(urls, uploadResult.SecureURL)
	}
	return urls, nil
}

// CloudinaryUploader binds a client to a folder so services can depend on a
// plain Upload method.
type CloudinaryUploader struct {
	Cld    *cloudinary.Cloudinary
	Folder string
}

func (u *CloudinaryUploader) Upload(ctx context.Context, images []string) ([]string, error) {
	return UploadImages(ctx, u.Cld, images, u.Folder)
}
