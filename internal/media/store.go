// Package media stores uploaded assets (avatars, cover images, videos and
// thumbnails) in an S3-compatible bucket.
package media

import (
	"context"
	"net/url"
	"strings"
)

// Asset is a stored object: its public URL and the id used to delete it.
type Asset struct {
	URL      string
	PublicID string
}

// Store is the media asset service. Upload takes ownership of the local
// file and removes it whether or not the upload succeeds.
type Store interface {
	Upload(ctx context.Context, localPath string) (Asset, error)
	Delete(ctx context.Context, publicID string) error
	PublicID(assetURL string) string
}

// PublicIDFromURL recovers the object key from an asset URL. When baseURL
// prefixes assetURL the remainder is the key; otherwise the URL path is
// used. An empty result means the URL does not name an object.
func PublicIDFromURL(baseURL, assetURL string) string {
	assetURL = strings.TrimSpace(assetURL)
	if assetURL == "" {
		return ""
	}
	if base := strings.TrimSuffix(baseURL, "/"); base != "" && strings.HasPrefix(assetURL, base+"/") {
		return strings.Trim(strings.TrimPrefix(assetURL, base), "/")
	}
	u, err := url.Parse(assetURL)
	if err != nil || (u.Scheme == "" && u.Host == "") {
		return strings.Trim(assetURL, "/")
	}
	return strings.Trim(u.Path, "/")
}
