// Package roomfile читает и пишет YAML-файл с определениями комнат.
//
//	rooms:
//	  - id: lobby
//	    name: Lobby
//	    max_participants: 20
//	    owner_email: admin@example.com
//	    customization:
//	      enable_chat: true
//	    permissions:
//	      member:
//	        can_broadcast: false
package roomfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Mihika-Tech/LiveCollab/internal/domain/input"
)

type file struct {
	Rooms []input.RoomDefinition `yaml:"rooms"`
}

// Load читает определения комнат; неизвестные поля считаются ошибкой
func Load(path string) ([]input.RoomDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return Decode(bytes.NewReader(data))
}

func Decode(r io.Reader) ([]input.RoomDefinition, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f file
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}

		return nil, fmt.Errorf("decode rooms: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Rooms))
	for i, def := range f.Rooms {
		if def.ID == "" {
			return nil, fmt.Errorf("room #%d: id is required", i+1)
		}

		if _, dup := seen[def.ID]; dup {
			return nil, fmt.Errorf("room %q defined twice", def.ID)
		}
		seen[def.ID] = struct{}{}

		for role := range def.Permissions {
			if !role.Valid() {
				return nil, fmt.Errorf("room %q: unknown role %q", def.ID, role)
			}
		}
	}

	return f.Rooms, nil
}

func Save(path string, defs []input.RoomDefinition) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	if err = Encode(f, defs); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}

func Encode(w io.Writer, defs []input.RoomDefinition) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(file{Rooms: defs}); err != nil {
		return fmt.Errorf("encode rooms: %w", err)
	}

	return enc.Close()
}
