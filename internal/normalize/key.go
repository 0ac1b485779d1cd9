package normalize

import (
	"strings"

	"horse.fit/unify/internal/record"
)

type KeyKind string

const (
	KeyEmail          KeyKind = "email"
	KeyLinkedInURL    KeyKind = "linkedin_url"
	KeyNameAndCompany KeyKind = "name_and_company"
	KeyDomain         KeyKind = "domain"
	KeyName           KeyKind = "name"
)

// MatchKey is the canonical identity a record groups and coalesces under.
// The zero value means "no identifiable key".
type MatchKey struct {
	Kind  KeyKind `json:"kind"`
	Value string  `json:"value"`
}

func (k MatchKey) Zero() bool {
	return k.Kind == "" || k.Value == ""
}

func (k MatchKey) String() string {
	if k.Zero() {
		return ""
	}
	return string(k.Kind) + ":" + k.Value
}

// KeyFor selects the match key for one record. Priority is fixed:
// contacts prefer email, then profile URL, then name+company;
// accounts prefer domain, then normalized name. Total and deterministic.
func KeyFor(r record.RawRecord) MatchKey {
	switch r.EntityType {
	case record.EntityAccount:
		if domain := Domain(record.StringValue(r.Fields.Domain)); domain != "" {
			return MatchKey{Kind: KeyDomain, Value: domain}
		}
		if name := Name(record.StringValue(r.Fields.Name)); name != "" {
			return MatchKey{Kind: KeyName, Value: name}
		}
	default:
		if email := Email(record.StringValue(r.Fields.Email)); email != "" {
			return MatchKey{Kind: KeyEmail, Value: email}
		}
		if profile := LinkedInURL(record.StringValue(r.Fields.LinkedInURL)); profile != "" {
			return MatchKey{Kind: KeyLinkedInURL, Value: profile}
		}
		if pair := NameAndCompany(record.StringValue(r.Fields.Name), record.StringValue(r.Fields.Company)); pair != "" {
			return MatchKey{Kind: KeyNameAndCompany, Value: pair}
		}
	}
	return MatchKey{}
}

// NameAndCompany builds the staged entity key for a contact identified only
// by name and company. Both parts normalize independently around the "|"
// separator, so the staged key and the job coalesce key always agree.
func NameAndCompany(name, company string) string {
	normalizedName := Name(name)
	normalizedCompany := Name(company)
	if normalizedName == "" || normalizedCompany == "" {
		return ""
	}
	return normalizedName + "|" + normalizedCompany
}

// CoalesceKey canonicalizes a caller-supplied entity key for job admission,
// so "Acme.com" and "https://www.acme.com/" coalesce onto one job. A "|" in
// a contact key marks a name+company pair and is kept as the separator.
func CoalesceKey(entityType record.EntityType, raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}

	if entityType == record.EntityAccount {
		if domain := Domain(trimmed); domain != "" {
			return domain
		}
		return Name(trimmed)
	}

	if email := Email(trimmed); email != "" {
		return email
	}
	if profile := LinkedInURL(trimmed); profile != "" {
		return profile
	}
	if name, company, found := strings.Cut(trimmed, "|"); found {
		if pair := NameAndCompany(name, company); pair != "" {
			return pair
		}
	}
	return Name(trimmed)
}
