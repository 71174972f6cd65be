package handlers

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"storefront/internal/markdown"
	"storefront/internal/slug"
)

// Validation limits for catalog and order fields.
const (
	maxNameLen        = 300
	maxSlugLen        = 300
	maxSKULen         = 100
	maxDescriptionLen = 5_000
	maxBodyLen        = 100_000
	maxContactLen     = 300
	maxAddressLen     = 1_000
	maxCommentLen     = 2_000
	maxOrderLines     = 100
)

// validateName checks a category or product name and returns the first
// error found.
func validateName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Name is required."
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return "Name is too long (max 300 characters)."
	}
	return ""
}

// resolveSlug returns the given slug, or one generated from name when it
// is blank.
func resolveSlug(given, name string) (string, string) {
	s := strings.TrimSpace(given)
	if s == "" {
		s = slug.Generate(name)
	}
	if s == "" {
		return "", "Slug could not be derived from the name."
	}
	if utf8.RuneCountInString(s) > maxSlugLen {
		return "", "Slug is too long (max 300 characters)."
	}
	return s, ""
}

// validateDescription checks a category description.
func validateDescription(d string) string {
	if utf8.RuneCountInString(d) > maxDescriptionLen {
		return "Description is too long (max 5,000 characters)."
	}
	return ""
}

// validateSKU checks an optional stock keeping unit.
func validateSKU(sku string) string {
	if utf8.RuneCountInString(sku) > maxSKULen {
		return "SKU is too long (max 100 characters)."
	}
	return ""
}

// bodyHTML picks the stored HTML for a product text field. Markdown wins
// over raw HTML when both are given.
func bodyHTML(html, md string) (string, string) {
	if utf8.RuneCountInString(html) > maxBodyLen || utf8.RuneCountInString(md) > maxBodyLen {
		return "", "Body is too long (max 100,000 characters)."
	}
	if strings.TrimSpace(md) == "" {
		return html, ""
	}
	out, err := markdown.ToHTML(md)
	if err != nil {
		return "", "Markdown could not be rendered."
	}
	return out, ""
}

// validateContact checks the customer contact of an order: a name plus a
// phone number or a valid email address.
func validateContact(name, email, phone, address, comment string) string {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	phone = strings.TrimSpace(phone)
	switch {
	case name == "":
		return "Customer name is required."
	case utf8.RuneCountInString(name) > maxContactLen:
		return "Customer name is too long (max 300 characters)."
	case email == "" && phone == "":
		return "A phone number or an email address is required."
	case utf8.RuneCountInString(email) > maxContactLen || utf8.RuneCountInString(phone) > maxContactLen:
		return "Contact details are too long (max 300 characters)."
	case utf8.RuneCountInString(address) > maxAddressLen:
		return "Address is too long (max 1,000 characters)."
	case utf8.RuneCountInString(comment) > maxCommentLen:
		return "Comment is too long (max 2,000 characters)."
	}
	if email != "" {
		if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
			return "Email address is invalid."
		}
	}
	return ""
}
