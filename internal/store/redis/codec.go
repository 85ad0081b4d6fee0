package redis

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/scalapatisserie/muffin-site/internal/domain"
)

func encodePage(p *domain.Page) ([]byte, error) {
	b, err := msgpack.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal page %s: %w", p.Route, err)
	}
	return b, nil
}

func decodePage(b []byte) (*domain.Page, error) {
	var p domain.Page
	if err := msgpack.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal page: %w", err)
	}
	return &p, nil
}

func encodeInfo(info domain.BuildInfo) ([]byte, error) {
	b, err := msgpack.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal build %s: %w", info.ID, err)
	}
	return b, nil
}

func decodeInfo(b []byte) (domain.BuildInfo, error) {
	var info domain.BuildInfo
	if err := msgpack.Unmarshal(b, &info); err != nil {
		return domain.BuildInfo{}, fmt.Errorf("failed to unmarshal build info: %w", err)
	}
	return info, nil
}
