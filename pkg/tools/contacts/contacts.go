// Package contacts implements the contact_lookup tool: a small name to email
// address book stored as a JSON file.
package contacts

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-go-golems/jiminy/pkg/tools"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

const Name = "contact_lookup"

const description = `Manage contact information (name and email address).
Operations: "add" needs name and email, "get" needs name, "list" needs nothing.`

var exampleContacts = map[string]string{
	"laura": "laura@example.com",
	"john":  "john.doe@example.com",
	"sarah": "sarah.smith@example.com",
}

type Input struct {
	Operation string `json:"operation" jsonschema:"required,enum=add,enum=get,enum=list,description=What to do"`
	Name      string `json:"name,omitempty" jsonschema:"description=Contact name (for add and get)"`
	Email     string `json:"email,omitempty" jsonschema:"description=Email address (for add)"`
}

// Book is a contact list persisted to a JSON file.
type Book struct {
	mu       sync.Mutex
	fs       afero.Fs
	path     string
	contacts map[string]string
}

// Open loads the book from dataDir/contacts.json. A missing file is created
// with a few example contacts.
func Open(fs afero.Fs, dataDir string) (*Book, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if err := fs.MkdirAll(dataDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create data dir %s", dataDir)
	}
	b := &Book{fs: fs, path: filepath.Join(dataDir, "contacts.json"), contacts: map[string]string{}}

	data, err := afero.ReadFile(fs, b.path)
	switch {
	case os.IsNotExist(err):
		for k, v := range exampleContacts {
			b.contacts[k] = v
		}
		if err := b.save(); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, errors.Wrapf(err, "read %s", b.path)
	default:
		if err := json.Unmarshal(data, &b.contacts); err != nil {
			return nil, errors.Wrapf(err, "parse %s", b.path)
		}
	}
	return b, nil
}

func (b *Book) save() error {
	data, err := json.MarshalIndent(b.contacts, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal contacts")
	}
	return errors.Wrapf(afero.WriteFile(b.fs, b.path, data, 0o644), "write %s", b.path)
}

func (b *Book) Add(name, email string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.contacts[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(email)
	return b.save()
}

func (b *Book) Get(name string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	email, ok := b.contacts[strings.ToLower(strings.TrimSpace(name))]
	return email, ok
}

func (b *Book) All() map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ret := make(map[string]string, len(b.contacts))
	for k, v := range b.contacts {
		ret[k] = v
	}
	return ret
}

func (b *Book) Run(_ context.Context, in Input) (string, error) {
	switch in.Operation {
	case "add":
		if in.Name == "" || in.Email == "" {
			return "", errors.New("Both name and email are required for adding a contact")
		}
		if err := b.Add(in.Name, in.Email); err != nil {
			return "", errors.Wrap(err, "adding contact")
		}
		return "Contact added: " + in.Name + " (" + in.Email + ")", nil
	case "get":
		if in.Name == "" {
			return "", errors.New("Name is required for getting contact information")
		}
		email, ok := b.Get(in.Name)
		if !ok {
			return "", errors.Errorf("No contact found with name '%s'", in.Name)
		}
		out, _ := json.Marshal(map[string]string{"name": in.Name, "email": email})
		return string(out), nil
	case "list":
		all := b.All()
		if len(all) == 0 {
			return "No contacts found", nil
		}
		names := make([]string, 0, len(all))
		for n := range all {
			names = append(names, n)
		}
		sort.Strings(names)
		var sb strings.Builder
		for _, n := range names {
			sb.WriteString(n + ": " + all[n] + "\n")
		}
		return strings.TrimSuffix(sb.String(), "\n"), nil
	case "":
		return "", errors.New("Operation type not specified. Please include 'operation' field with value 'add', 'get', or 'list'")
	default:
		return "", errors.Errorf("Invalid operation '%s'. Must be one of: add, get, list", in.Operation)
	}
}

func (b *Book) Adapter() tools.Adapter {
	return tools.NewFuncAdapter(Name, description, b.Run)
}
