package jsonstore

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/wpgateway/internal/domain/model"
)

// recordMeta holds the persisted fields shared by every record kind.
type recordMeta struct {
	ConnectionID string   `json:"connection_id"`
	CreatedAt    isoTime  `json:"created_at"`
	UpdatedAt    *isoTime `json:"updated_at,omitempty"`
	Enabled      *bool    `json:"enabled,omitempty"`
	LastUsed     *isoTime `json:"last_used"`
}

func newRecordMeta(id string, now time.Time) recordMeta {
	enabled := true
	return recordMeta{
		ConnectionID: id,
		CreatedAt:    newISOTime(now),
		UpdatedAt:    isoTimePtr(now),
		Enabled:      &enabled,
	}
}

// isEnabled treats a missing flag as enabled.
func (m recordMeta) isEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

func (m *recordMeta) setEnabled(v bool) {
	m.Enabled = &v
}

func (m recordMeta) toModel(owner string) model.ConnectionMeta {
	meta := model.ConnectionMeta{
		ID:        m.ConnectionID,
		Owner:     owner,
		Enabled:   m.isEnabled(),
		CreatedAt: m.CreatedAt.Time,
		LastUsed:  timePtr(m.LastUsed),
	}
	if m.UpdatedAt != nil {
		meta.UpdatedAt = m.UpdatedAt.Time
	} else {
		meta.UpdatedAt = m.CreatedAt.Time
	}
	return meta
}

type wordpressRecord struct {
	recordMeta
	SiteName        string `json:"site_name"`
	SiteURL         string `json:"site_url"`
	Username        string `json:"wp_username"`
	Password        string `json:"wp_password"`
	SiteLanguage    string `json:"site_language"`
	SiteDescription string `json:"site_description"`
}

type kieRecord struct {
	recordMeta
	Name        string `json:"connection_name"`
	APIKey      string `json:"api_key"`
	Description string `json:"description"`
}

type wordstatRecord struct {
	recordMeta
	Name         string `json:"connection_name"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RedirectURI  string `json:"redirect_uri"`
	Description  string `json:"description"`
}

type telegramRecord struct {
	recordMeta
	BotName     string `json:"bot_name"`
	BotToken    string `json:"bot_token"`
	ChatID      string `json:"chat_id"`
	Description string `json:"description"`
}

// nextID returns the next free connection id in partition. The suffix is one
// more than the larger of the partition size and the highest numeric suffix in
// use, so an id is never handed out while a record holding it is still live.
func nextID[R any](partition map[string]R, prefix string) string {
	n := len(partition)
	for id := range partition {
		suffix, ok := strings.CutPrefix(id, prefix)
		if !ok {
			continue
		}
		if v, err := strconv.Atoi(suffix); err == nil && v > n {
			n = v
		}
	}
	for {
		n++
		id := prefix + strconv.Itoa(n)
		if _, taken := partition[id]; !taken {
			return id
		}
	}
}

// sortedRecords returns the partition's records ordered by creation time, then id.
func sortedRecords[R any](partition map[string]R, meta func(R) recordMeta) []R {
	out := make([]R, 0, len(partition))
	for _, r := range partition {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b R) int {
		ma, mb := meta(a), meta(b)
		if c := ma.CreatedAt.Compare(mb.CreatedAt.Time); c != 0 {
			return c
		}
		return cmp.Compare(ma.ConnectionID, mb.ConnectionID)
	})
	return out
}

// normalizeSiteURL strips trailing slashes.
func normalizeSiteURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

func wordpressPrefix(owner string) string {
	return owner + "_"
}

func servicePrefix(owner string, kind model.Kind) string {
	return fmt.Sprintf("%s_%s_", owner, kind)
}

func applyString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
