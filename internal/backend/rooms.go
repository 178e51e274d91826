package backend

import (
	"context"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/vovakirdan/ircgate/internal/core"
)

var (
	roomIDPattern     = regexp.MustCompile(`/leaveRoom/(\d+)`)
	userListPattern   = regexp.MustCompile(`var userList\s*=\s*(\{[\s\S]+?\});`)
	adminListPattern  = regexp.MustCompile(`adminList:\s*(\{.*?\})`)
	descriptionPrefix = regexp.MustCompile(`[\s\S]+?\n\n`)
)

// RoomPage is what a room page reveals on entry.
type RoomPage struct {
	ID     string
	Users  []*core.User
	Admins []string
	// AdminsFound is false when the page carried no admin list.
	AdminsFound bool
}

// FetchRoomListing scrapes the room index and returns skeleton rooms sorted by name.
func (c *Client) FetchRoomListing(ctx context.Context) ([]*core.Room, error) {
	c.log.Info().Msg("downloading room list")
	body, err := c.get(ctx, "/")
	if err != nil {
		return nil, err
	}
	doc, err := parseHTML(body)
	if err != nil {
		return nil, core.NetworkError(err, "room list")
	}

	var rooms []*core.Room
	doc.Find("div.row.row-xs-height.list-group").Each(func(_ int, s *goquery.Selection) {
		link := s.Find("a").First()
		name := strings.TrimSpace(link.Find("h4").First().Text())
		if name == "" {
			return
		}
		description := strings.TrimSpace(descriptionPrefix.ReplaceAllString(link.Text(), ""))
		users := s.Find("div").First().Find("span").Length()
		rooms = append(rooms, core.NewRoom(name, description, users))
	})

	sort.SliceStable(rooms, func(i, j int) bool { return rooms[i].Name < rooms[j].Name })
	return rooms, nil
}

// FetchRoom enters the room by loading its page and extracts id, users and admins.
func (c *Client) FetchRoom(ctx context.Context, name string) (*RoomPage, error) {
	body, err := c.get(ctx, "/"+name)
	if err != nil {
		return nil, err
	}
	text := string(body)

	m := roomIDPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, core.RoomError("Failed to get room ID!")
	}
	page := &RoomPage{ID: m[1]}

	m = userListPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, core.RoomError("Failed to get user list for the room: %s", name)
	}
	list, err := DecodeLiteral(m[1])
	if err != nil {
		return nil, core.RoomError("Failed to decode user list for the room %s: %v", name, err)
	}
	members, err := list.Path("data").ChildrenMap()
	if err != nil {
		return nil, core.RoomError("Malformed user list for the room: %s", name)
	}
	for _, member := range members {
		if u := UserFromContainer(member); u != nil && u.Name != "" {
			page.Users = append(page.Users, u)
		}
	}
	sort.Slice(page.Users, func(i, j int) bool {
		return strings.ToLower(page.Users[i].Name) < strings.ToLower(page.Users[j].Name)
	})

	if m = adminListPattern.FindStringSubmatch(text); m != nil {
		if admins, err := DecodeLiteral(m[1]); err == nil {
			if byKey, err := admins.ChildrenMap(); err == nil {
				page.AdminsFound = true
				for _, a := range byKey {
					page.Admins = append(page.Admins, asString(a.Data()))
				}
				sort.Strings(page.Admins)
			}
		}
	}

	return page, nil
}

// LeaveRoom leaves the room. A failed leave renders a page without the user menu.
func (c *Client) LeaveRoom(ctx context.Context, roomID string) error {
	body, err := c.get(ctx, pathLeaveRoom+roomID)
	if err != nil {
		return err
	}
	doc, err := parseHTML(body)
	if err != nil || !isLoggedPage(doc) {
		return core.RoomError("Failed to leave the room %s", roomID)
	}
	return nil
}

// PollMessages asks for messages after chatIndex.
func (c *Client) PollMessages(ctx context.Context, roomID, chatIndex string) (*Envelope, error) {
	return c.postEnvelope(ctx, pathText, url.Values{
		"roomId":    {roomID},
		"chatIndex": {chatIndex},
	})
}

// PostText sends text to the room. The response carries everything since chatIndex.
func (c *Client) PostText(ctx context.Context, roomID, chatIndex, text string) (*Envelope, error) {
	return c.postEnvelope(ctx, pathText, url.Values{
		"roomId":    {roomID},
		"chatIndex": {chatIndex},
		"text":      {text},
		"userIdTo":  {"0"},
	})
}

// PollUserActivity refreshes idle times of the room's members.
func (c *Client) PollUserActivity(ctx context.Context, roomID string) (*Envelope, error) {
	return c.postEnvelope(ctx, pathRoomUserTime, url.Values{"roomId": {roomID}})
}

func (c *Client) postEnvelope(ctx context.Context, path string, form url.Values) (*Envelope, error) {
	body, err := c.post(ctx, path, form)
	if err != nil {
		return nil, err
	}
	env, err := ParseEnvelope(body)
	if err != nil {
		return nil, core.NetworkError(err, "%s", path)
	}
	return env, nil
}
