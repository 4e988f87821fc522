package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"

	"github.com/kiln-build/kiln/internal/msg"
)

// includeCacheDir is where remote includes land, relative to the
// description file's directory.
const includeCacheDir = "build/_includes"

var includeShortcuts = map[string]string{
	"gh:": "https://github.com/",
	"gl:": "https://gitlab.com/",
	"bb:": "https://bitbucket.org/",
	"sr:": "https://sr.ht/",
	"cb:": "https://codeberg.org/",
}

const gitPrefix = "git:"

var errEmptyInclude = errors.New("empty include string")

// resolveInclude maps an include string to a local description file
// path, fetching remote repositories into the include cache on first
// use. Local includes resolve relative to dir.
func resolveInclude(include, dir string) (string, error) {
	if include == "" {
		return "", errEmptyInclude
	}

	// git:https://example.com/owner/repo.git[@branch][#rev]
	if strings.HasPrefix(include, gitPrefix) {
		return fetchInclude(include[len(gitPrefix):], include, dir)
	}

	// gh:owner/repo and friends
	for shortcut, base := range includeShortcuts {
		if strings.HasPrefix(include, shortcut) {
			return fetchInclude(base+include[len(shortcut):], include, dir)
		}
	}

	if filepath.IsAbs(include) {
		return include, nil
	}
	return filepath.Join(dir, include), nil
}

type gitURL struct {
	cleanURL    string
	branch      string
	commitOrTag string
}

// owner/repo@master#0.1.0
// owner/repo@feature-branch#12345abc
// owner/repo#12345abc
func parseGitURL(rawURL string) (res gitURL) {
	parts := strings.SplitN(rawURL, "#", 2)
	baseURL := parts[0]
	if len(parts) == 2 {
		res.commitOrTag = parts[1]
	}

	parts = strings.SplitN(baseURL, "@", 2)
	res.cleanURL = parts[0]
	if len(parts) == 2 {
		res.branch = parts[1]
	}

	if !strings.HasSuffix(res.cleanURL, ".git") {
		res.cleanURL += ".git"
	}

	return
}

// cacheKey keeps one checkout per distinct include string.
func cacheKey(include string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ':', '/', '@', '#', '\\':
			return '_'
		default:
			return r
		}
	}, include)
}

func fetchInclude(rawURL, include, dir string) (string, error) {
	dest := filepath.Join(dir, includeCacheDir, cacheKey(include))
	if _, err := os.Stat(filepath.Join(dest, DefaultFileName)); err == nil {
		return filepath.Join(dest, DefaultFileName), nil
	}

	parsedURL := parseGitURL(rawURL)
	msg.Status("Fetching", "%s", parsedURL.cleanURL)

	pb := msg.NewProgressBar(0, 2, os.Stdout)
	cloneOptions := &git.CloneOptions{
		URL:               parsedURL.cleanURL,
		Progress:          pb,
		RecurseSubmodules: git.DefaultSubmoduleRecursionDepth,
	}

	if parsedURL.commitOrTag == "" {
		cloneOptions.Depth = 1 // shallow clone of the latest commit is enough
	}

	if parsedURL.branch != "" {
		cloneOptions.ReferenceName = plumbing.NewBranchReferenceName(parsedURL.branch)
		cloneOptions.SingleBranch = true
	}

	repo, err := git.PlainClone(dest, cloneOptions)
	pb.Finish()
	if err != nil {
		return "", err
	}

	if parsedURL.commitOrTag != "" {
		w, err := repo.Worktree()
		if err != nil {
			return "", fmt.Errorf("could not get worktree: %w", err)
		}

		revision := parsedURL.commitOrTag
		hash, err := repo.ResolveRevision(plumbing.Revision(revision))
		if err != nil {
			return "", fmt.Errorf("could not resolve revision `%s`: %w", revision, err)
		}

		err = w.Checkout(&git.CheckoutOptions{
			Hash:  *hash,
			Force: true,
		})
		if err != nil {
			return "", fmt.Errorf("failed to checkout `%s`: %w", revision, err)
		}
	}

	return filepath.Join(dest, DefaultFileName), nil
}
