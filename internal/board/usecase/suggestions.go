package usecase

import (
	"regexp"
	"sort"
	"strings"

	boarddomain "mailboard-backend/internal/board/domain"

	pkgerrors "github.com/pkg/errors"
)

const subjectSuggestionMaxLen = 60

// GetSearchSuggestions combines three candidate generators over the
// cached window in fixed priority order: contacts, then subjects, then
// keyword fragments.
func (u *boardUsecase) GetSearchSuggestions(userID, partialText string, limit int) ([]*Suggestion, error) {
	partial := strings.TrimSpace(partialText)
	if partial == "" {
		return nil, pkgerrors.Wrap(boarddomain.ErrInvalidInput, "suggestion text must not be empty")
	}
	if limit <= 0 {
		limit = 10
	}

	window, err := u.cachedRepo.ListRecent(userID, u.config.FuzzySearchWindow)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "load suggestion window")
	}

	suggestions := make([]*Suggestion, 0, limit)
	suggestions = appendBounded(suggestions, contactSuggestions(window, partial), limit)
	suggestions = appendBounded(suggestions, subjectSuggestions(window, partial), limit)
	suggestions = appendBounded(suggestions, keywordSuggestions(window, partial), limit)
	return suggestions, nil
}

func appendBounded(dst, src []*Suggestion, limit int) []*Suggestion {
	for _, s := range src {
		if len(dst) >= limit {
			break
		}
		dst = append(dst, s)
	}
	return dst
}

// contactSuggestions matches sender names and addresses, preferring
// prefix matches over substring matches. Deduped by address.
func contactSuggestions(window []*boarddomain.CachedEmail, partial string) []*Suggestion {
	lower := strings.ToLower(partial)

	type contact struct {
		suggestion *Suggestion
		prefix     bool
	}

	seen := make(map[string]struct{})
	var contacts []contact
	for _, item := range window {
		email := strings.ToLower(item.FromEmail)
		if email == "" {
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}

		name := strings.ToLower(item.FromName)
		prefix := strings.HasPrefix(name, lower) || strings.HasPrefix(email, lower)
		if !prefix && !strings.Contains(name, lower) && !strings.Contains(email, lower) {
			continue
		}

		seen[email] = struct{}{}
		contacts = append(contacts, contact{
			suggestion: &Suggestion{
				Type:  "contact",
				Text:  item.FromName,
				Value: item.FromEmail,
			},
			prefix: prefix,
		})
	}

	sort.SliceStable(contacts, func(i, j int) bool {
		return contacts[i].prefix && !contacts[j].prefix
	})

	result := make([]*Suggestion, 0, len(contacts))
	for _, c := range contacts {
		result = append(result, c.suggestion)
	}
	return result
}

// subjectSuggestions matches full subjects, deduped and truncated for
// display.
func subjectSuggestions(window []*boarddomain.CachedEmail, partial string) []*Suggestion {
	lower := strings.ToLower(partial)

	seen := make(map[string]struct{})
	var result []*Suggestion
	for _, item := range window {
		subject := strings.TrimSpace(item.Subject)
		if subject == "" {
			continue
		}
		key := strings.ToLower(subject)
		if _, dup := seen[key]; dup {
			continue
		}
		if !strings.Contains(key, lower) {
			continue
		}
		seen[key] = struct{}{}

		display := subject
		if len(display) > subjectSuggestionMaxLen {
			display = display[:subjectSuggestionMaxLen] + "..."
		}
		result = append(result, &Suggestion{
			Type:  "subject",
			Text:  display,
			Value: subject,
		})
	}
	return result
}

// keywordSuggestions extracts word fragments continuing the partial
// text, ranked by frequency across the window.
func keywordSuggestions(window []*boarddomain.CachedEmail, partial string) []*Suggestion {
	pattern, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(partial) + `\w*`)
	if err != nil {
		return nil
	}

	freq := make(map[string]int)
	for _, item := range window {
		for _, text := range []string{item.Subject, item.Snippet} {
			for _, match := range pattern.FindAllString(text, -1) {
				word := strings.ToLower(match)
				if len(word) <= len(partial) {
					continue
				}
				freq[word]++
			}
		}
	}

	words := make([]string, 0, len(freq))
	for word := range freq {
		words = append(words, word)
	}
	sort.Slice(words, func(i, j int) bool {
		if freq[words[i]] != freq[words[j]] {
			return freq[words[i]] > freq[words[j]]
		}
		return words[i] < words[j]
	})

	result := make([]*Suggestion, 0, len(words))
	for _, word := range words {
		result = append(result, &Suggestion{
			Type:  "keyword",
			Text:  word,
			Value: word,
		})
	}
	return result
}
