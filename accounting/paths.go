package accounting

import (
	"net/url"
	"strings"
)

// RenderPath fills a path template for one tenant and record.
func RenderPath(tmpl, tenantID, recordID string) string {
	return strings.NewReplacer("{tenant}", tenantID, "{id}", recordID).Replace(tmpl)
}

func asFolder(p string) string {
	p = strings.TrimPrefix(p, "/")
	if p == "" || strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}

// ObjectKey reduces a stored reference to an object key. Public URLs keep
// their path; a leading bucket segment (path-style URLs) is dropped.
func ObjectKey(ref, bucket string) string {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		u, err := url.Parse(ref)
		if err != nil {
			return ""
		}
		ref = u.Path
	}
	ref = strings.TrimPrefix(ref, "/")
	if bucket != "" {
		ref = strings.TrimPrefix(ref, bucket+"/")
	}
	return ref
}
