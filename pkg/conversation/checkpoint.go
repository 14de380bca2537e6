package conversation

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

var ErrNoCheckpoint = errors.New("no checkpoint")

// Checkpointer persists sessions so a chat can resume after a restart.
type Checkpointer interface {
	Save(ctx context.Context, sess *Session) error
	Load(ctx context.Context, chatID string) (*Session, error)
	Delete(ctx context.Context, chatID string) error
	List(ctx context.Context) ([]string, error)
}

// FileCheckpointer writes one YAML file per chat into a directory.
type FileCheckpointer struct {
	fs  afero.Fs
	dir string
}

var _ Checkpointer = (*FileCheckpointer)(nil)

func NewFileCheckpointer(fs afero.Fs, dir string) (*FileCheckpointer, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create checkpoint dir %s", dir)
	}
	return &FileCheckpointer{fs: fs, dir: dir}, nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

func (f *FileCheckpointer) path(chatID string) string {
	return filepath.Join(f.dir, unsafeChars.ReplaceAllString(chatID, "_")+".yaml")
}

func (f *FileCheckpointer) Save(_ context.Context, sess *Session) error {
	b, err := yaml.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "marshal session")
	}
	p := f.path(sess.ChatID)
	tmp := p + ".tmp"
	if err := afero.WriteFile(f.fs, tmp, b, 0o600); err != nil {
		return errors.Wrapf(err, "write %s", tmp)
	}
	return errors.Wrap(f.fs.Rename(tmp, p), "rename checkpoint")
}

func (f *FileCheckpointer) Load(_ context.Context, chatID string) (*Session, error) {
	b, err := afero.ReadFile(f.fs, f.path(chatID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCheckpoint
		}
		return nil, errors.Wrapf(err, "read checkpoint for %s", chatID)
	}
	sess := &Session{}
	if err := yaml.Unmarshal(b, sess); err != nil {
		return nil, errors.Wrapf(err, "parse checkpoint for %s", chatID)
	}
	return sess, nil
}

func (f *FileCheckpointer) Delete(_ context.Context, chatID string) error {
	err := f.fs.Remove(f.path(chatID))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "delete checkpoint for %s", chatID)
	}
	return nil
}

// List returns the chat ids stored in the directory.
func (f *FileCheckpointer) List(ctx context.Context) ([]string, error) {
	entries, err := afero.ReadDir(f.fs, f.dir)
	if err != nil {
		return nil, errors.Wrap(err, "list checkpoints")
	}
	var ret []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		sess, err := f.Load(ctx, strings.TrimSuffix(e.Name(), ".yaml"))
		if err != nil {
			continue
		}
		ret = append(ret, sess.ChatID)
	}
	sort.Strings(ret)
	return ret, nil
}
