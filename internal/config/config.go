package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/quipsync/quipsync/internal/utils"
)

const DefaultBaseURL = "https://platform.quip.com/1"

// Mode selects the engine's skip/export decision strategy.
type Mode string

const (
	// ModeFull exports every document regardless of prior state.
	ModeFull Mode = "full"
	// ModeIncremental exports only documents modified since the last recorded export.
	ModeIncremental Mode = "incremental"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case ModeFull:
		return ModeFull, nil
	case ModeIncremental:
		return ModeIncremental, nil
	default:
		return "", fmt.Errorf("invalid mode %q (want %q or %q)", s, ModeFull, ModeIncremental)
	}
}

// RunConfig is the fully-resolved configuration the engine consumes. It is
// assembled by the CLI layer; the engine never reads flags, env vars or
// config files itself.
type RunConfig struct {
	// FolderID is the remote root folder id, already extracted from the source URL.
	FolderID string
	// TargetDir is the absolute local directory the tree is mirrored into.
	TargetDir string
	// Mode is full or incremental.
	Mode Mode
	// Token is the opaque bearer credential. Never logged unmasked.
	Token string
	// BaseURL is the API base, e.g. https://platform.quip.com/1.
	BaseURL string
	// DryRun runs the full decision pipeline but skips downloads and writes.
	DryRun bool
}

func (c *RunConfig) Validate() error {
	if c.FolderID == "" {
		return errors.New("config: folder id is required")
	}
	if c.TargetDir == "" {
		return errors.New("config: target directory is required")
	}
	if c.Token == "" {
		return errors.New("config: api token is required")
	}
	if c.Mode != ModeFull && c.Mode != ModeIncremental {
		return fmt.Errorf("config: invalid mode %q", c.Mode)
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}

	resolved, err := utils.ResolvePath(c.TargetDir)
	if err != nil {
		return fmt.Errorf("config: resolve target: %w", err)
	}
	c.TargetDir = resolved

	return nil
}

var (
	folderIDPattern = regexp.MustCompile(`quip[^/]*\.com/([A-Za-z0-9]+)`)
	looseIDPattern  = regexp.MustCompile(`/([A-Za-z0-9]{10,})`)
	hostPattern     = regexp.MustCompile(`^(https?)://([^/]+)`)
)

// ExtractFolderID pulls the folder id out of a Quip folder URL, or returns
// the value as-is when it is already a bare id.
func ExtractFolderID(urlOrID string) (string, error) {
	if urlOrID == "" {
		return "", errors.New("config: source is required")
	}
	if !strings.HasPrefix(urlOrID, "http") {
		return urlOrID, nil
	}
	if m := folderIDPattern.FindStringSubmatch(urlOrID); m != nil {
		return m[1], nil
	}
	if m := looseIDPattern.FindStringSubmatch(urlOrID); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("config: could not extract folder id from %q", urlOrID)
}

// DeriveBaseURL maps a folder URL's host to its API base, e.g.
// https://quip-acme.com/Abc123 -> https://platform.quip-acme.com/1.
// Non-URL sources fall back to the public API base.
func DeriveBaseURL(source string) string {
	m := hostPattern.FindStringSubmatch(source)
	if m == nil {
		return DefaultBaseURL
	}
	host := m[2]
	if !strings.HasPrefix(host, "platform.") {
		host = "platform." + host
	}
	return fmt.Sprintf("%s://%s/1", m[1], host)
}
