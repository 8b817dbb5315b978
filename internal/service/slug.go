package service

import (
	"UTMTrack-Backend/internal/repository"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const (
	maxSlugLength   = 50
	maxSlugAttempts = 1000
	videoSuffixLen  = 6
)

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9-]+`)
	dashRuns     = regexp.MustCompile(`-{2,}`)
	slugPattern  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// GenerateSlug строит читаемый slug вида <домен>-<путь>-<первые 6 символов video_id>
func GenerateSlug(destinationURL, videoID string) string {
	suffix := videoID
	if len(suffix) > videoSuffixLen {
		suffix = suffix[:videoSuffixLen]
	}

	u, err := url.Parse(destinationURL)
	if err != nil || u.Hostname() == "" {
		return cleanSlug("link-" + videoID)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	name := host
	if parts := strings.Split(host, "."); len(parts) > 1 {
		name = parts[0]
	}

	slug := name
	if path := strings.Trim(u.Path, "/"); path != "" {
		slug += "-" + path
	}
	slug += "-" + suffix

	slug = cleanSlug(slug)
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	if slug == "" {
		return cleanSlug("link-" + videoID)
	}
	return slug
}

func cleanSlug(s string) string {
	s = nonSlugChars.ReplaceAllString(strings.ToLower(s), "-")
	s = dashRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// uniqueSlug добавляет суффикс -2, -3, ... пока slug занят
func uniqueSlug(ctx context.Context, storage repository.Storage, base string) (string, error) {
	slug := base
	for counter := 2; counter <= maxSlugAttempts; counter++ {
		exists, err := storage.SlugExists(ctx, slug)
		if err != nil {
			return "", fmt.Errorf("failed to check slug existence: %w", err)
		}
		if !exists {
			return slug, nil
		}
		slug = base + "-" + strconv.Itoa(counter)
	}
	return "", fmt.Errorf("no free slug for %q after %d attempts", base, maxSlugAttempts)
}
