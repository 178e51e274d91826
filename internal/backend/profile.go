package backend

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Profile is the public part of a user's profile page.
type Profile struct {
	Online       bool
	Karma        string
	Nick         string
	Age          string
	Registration string
	LastSeen     string
	Viewed       string
	ImageURL     string
}

var (
	karmaSuffix         = regexp.MustCompile(`\d+\s*$`)
	profileAge          = regexp.MustCompile(`věk:\s*(.+)`)
	profileRegistration = regexp.MustCompile(`registrace:\s*(.+)`)
	profileLastSeen     = regexp.MustCompile(`naposledy:\s*(.+)`)
	profileViewed       = regexp.MustCompile(`profil zobrazen:\s*(.+)`)
)

// FetchProfile loads the profile page of nick. It returns nil without error
// when the page has no profile block.
func (c *Client) FetchProfile(ctx context.Context, nick string) (*Profile, error) {
	body, err := c.get(ctx, pathProfile+nick)
	if err != nil {
		return nil, err
	}
	doc, err := parseHTML(body)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", nick, err)
	}

	info := doc.Find("div#userInfo").First()
	if info.Length() == 0 {
		return nil, nil
	}

	header := info.Find("div").First().Find("h2").First()
	p := &Profile{
		Online: header.Find(`i[title="online"]`).Length() > 0,
		Karma:  strings.TrimSpace(header.Find("span i.fa-stack-1x").First().Text()),
	}

	nickText := strings.TrimSpace(header.Text())
	if p.Karma != "" {
		nickText = strings.TrimSpace(karmaSuffix.ReplaceAllString(nickText, ""))
	}
	p.Nick = nickText

	if src, ok := info.Find(`img[title="Profil"]`).First().Attr("src"); ok {
		if strings.HasPrefix(src, "http") {
			p.ImageURL = src
		} else {
			p.ImageURL = c.endpoint(src)
		}
	}

	text := info.Find("div").First().Text()
	p.Age = firstGroup(profileAge, text)
	p.Registration = firstGroup(profileRegistration, text)
	p.LastSeen = firstGroup(profileLastSeen, text)
	p.Viewed = firstGroup(profileViewed, text)

	return p, nil
}

func firstGroup(re *regexp.Regexp, text string) string {
	if m := re.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}
