package state

import (
	"fmt"
	"net/netip"
	"os"
	"path"
	"path/filepath"
	"regexp"
)

var namePattern, _ = regexp.Compile("^[0-9a-z._-]+$")

func PathValidator(s string) error {
	_, err := os.Stat(path.Dir(s))
	if err != nil {
		return err
	}
	_, err = filepath.Abs(s)
	return err
}

func NameValidator(s string) error {
	if !namePattern.MatchString(s) {
		return fmt.Errorf("%s is not a valid name, must match pattern %s", s, namePattern.String())
	}
	if len(s) > 100 {
		return fmt.Errorf("len(\"%s\") = %d > 100 is too long", s, len(s))
	}
	return nil
}

func BindValidator(s string) error {
	_, err := netip.ParseAddrPort(s)
	return err
}

func NodeConfigValidator(node *LocalCfg) error {
	if node.Listen != "" {
		if err := BindValidator(node.Listen); err != nil {
			return fmt.Errorf("invalid listen address %q: %w", node.Listen, err)
		}
	}
	for _, peer := range node.Peers {
		if err := BindValidator(peer); err != nil {
			return fmt.Errorf("invalid peer address %q: %w", peer, err)
		}
	}
	if node.DebugAddr != "" {
		if err := BindValidator(node.DebugAddr); err != nil {
			return fmt.Errorf("invalid debug address %q: %w", node.DebugAddr, err)
		}
	}
	if node.LogPath != "" {
		if err := PathValidator(node.LogPath); err != nil {
			return fmt.Errorf("invalid log path %q: %w", node.LogPath, err)
		}
	}
	return nil
}

func MeshConfigValidator(cfg *MeshCfg) error {
	seenNames := make(map[string]struct{})
	seenIds := make(map[NodeId]string)
	for _, node := range cfg.Nodes {
		if err := NameValidator(node.Name); err != nil {
			return err
		}
		if node.Id == 0 {
			return fmt.Errorf("node %s: %w", node.Name, ErrZeroNodeId)
		}
		if _, ok := seenNames[node.Name]; ok {
			return fmt.Errorf("duplicate node name: %s", node.Name)
		}
		if other, ok := seenIds[node.Id]; ok {
			return fmt.Errorf("nodes %s and %s share id %s", other, node.Name, node.Id)
		}
		seenNames[node.Name] = struct{}{}
		seenIds[node.Id] = node.Name
	}
	if cfg.Latency < 0 {
		return fmt.Errorf("latency must not be negative")
	}
	_, err := cfg.Edges()
	return err
}
