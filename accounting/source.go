package accounting

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ByteSource says where a kind's byte count comes from: Tracked or Live.
type ByteSource interface {
	isByteSource()
	String() string
}

// Tracked sums the byte field stored on each content record.
type Tracked struct{}

func (Tracked) isByteSource()  {}
func (Tracked) String() string { return "tracked" }

// Layout describes how a Live kind's blobs are arranged.
type Layout string

const (
	// LayoutSharedFolder crawls one folder holding every blob of the tenant.
	LayoutSharedFolder Layout = "shared_folder"
	// LayoutFolderPerRecord crawls one folder per record.
	LayoutFolderPerRecord Layout = "folder_per_record"
	// LayoutFilePerRecord looks up one object per stored reference.
	LayoutFilePerRecord Layout = "file_per_record"
)

// Live resolves bytes through the blob store at calculation time. Path is a
// template over {tenant} and {id}; it is required for folder layouts and
// used by file_per_record only for records without a stored reference.
type Live struct {
	Layout Layout
	Path   string
}

func (Live) isByteSource() {}

func (l Live) String() string {
	if l.Path == "" {
		return "live:" + string(l.Layout)
	}
	return "live:" + string(l.Layout) + ":" + l.Path
}

// Policy maps every kind to its ByteSource.
type Policy map[Kind]ByteSource

// DefaultPolicy reflects which upload paths record byte counts today.
func DefaultPolicy() Policy {
	return Policy{
		KindCategoryMedia:  Tracked{},
		KindItemMedia:      Tracked{},
		KindPostMedia:      Tracked{},
		KindPortfolioMedia: Tracked{},
		KindPackageCover:   Tracked{},
		KindOfferMedia:     Live{Layout: LayoutFilePerRecord},
		KindOfferCover:     Live{Layout: LayoutFilePerRecord},
		KindContactAvatar:  Live{Layout: LayoutSharedFolder, Path: "tenants/{tenant}/avatars/"},
	}
}

func (p Policy) Validate() error {
	var errs []error
	for _, k := range Kinds {
		src, ok := p[k]
		if !ok {
			errs = append(errs, fmt.Errorf("%s: no byte source", k))
			continue
		}
		live, ok := src.(Live)
		if !ok {
			continue
		}
		switch live.Layout {
		case LayoutSharedFolder, LayoutFolderPerRecord:
			if live.Path == "" {
				errs = append(errs, fmt.Errorf("%s: %s requires a path", k, live.Layout))
			}
		case LayoutFilePerRecord:
		default:
			errs = append(errs, fmt.Errorf("%s: unknown layout %q", k, live.Layout))
		}
		if live.Layout == LayoutSharedFolder && k.hierarchical() {
			errs = append(errs, fmt.Errorf("%s: shared_folder cannot attribute bytes to records", k))
		}
		if live.Layout == LayoutFolderPerRecord && !strings.Contains(live.Path, "{id}") {
			errs = append(errs, fmt.Errorf("%s: folder_per_record path must contain {id}", k))
		}
	}
	for k := range p {
		if !k.Valid() {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownKind, k))
		}
	}
	return errors.Join(errs...)
}

type policyFile struct {
	Kinds map[string]sourceSpec `yaml:"kinds"`
}

type sourceSpec struct {
	Source string `yaml:"source"`
	Layout string `yaml:"layout"`
	Path   string `yaml:"path"`
}

// LoadPolicyFile overlays the kinds named in a YAML file onto DefaultPolicy:
//
//	kinds:
//	  package_cover:
//	    source: live
//	    layout: file_per_record
func LoadPolicyFile(path string) (Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return ParsePolicy(raw)
}

func ParsePolicy(raw []byte) (Policy, error) {
	var f policyFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse policy: %w", err)
	}

	p := DefaultPolicy()
	for name, spec := range f.Kinds {
		k, err := ParseKind(name)
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(spec.Source) {
		case "tracked":
			p[k] = Tracked{}
		case "live":
			p[k] = Live{Layout: Layout(spec.Layout), Path: spec.Path}
		default:
			return nil, fmt.Errorf("%s: unknown source %q", k, spec.Source)
		}
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	return p, nil
}
