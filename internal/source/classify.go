package source

import "strings"

// linkIcon is the sentinel icon value the knowledge box assigns to link
// resources. Every other "application/*" icon marks a stored file.
const linkIcon = "application/stf-link"

// Classify decides whether a resource is a downloadable file, an external
// link, or neither, based on its icon field. Total function: a missing or
// unrecognized icon classifies as Other.
func Classify(icon string) Classification {
	switch {
	case icon == linkIcon:
		return Link
	case icon != "" && strings.HasPrefix(icon, "application/"):
		return File
	default:
		return Other
	}
}
