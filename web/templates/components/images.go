package components

import "strings"

// PlaceholderImage is shown for destinations without a photo
const PlaceholderImage = "https://images.unsplash.com/photo-1596423348633-8472df3b006c?auto=format&fit=crop&w=800"

// ImageURL resolves a destination image path against the backend storage host
func ImageURL(storageURL, path string) string {
	path = strings.TrimSpace(path)
	switch {
	case path == "":
		return PlaceholderImage
	case strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "https://"):
		return path
	default:
		return strings.TrimRight(storageURL, "/") + "/" + strings.TrimLeft(path, "/")
	}
}
