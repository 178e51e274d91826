package transform

import (
	"regexp"
	"strconv"
	"strings"
)

// smileyNames maps backend smiley image numbers to readable names.
var smileyNames = map[int]string{
	1:   ":-D",
	4:   ";-)",
	5:   "Srdce-oči",
	8:   ":-O",
	10:  "Překvapený",
	92:  "Dumám",
	202: "ROFL",
	470: "Hihi",
	471: "Checheche",
	584: "Pojď sem",
	622: "Orál",
	641: "Svíčka",
	670: "Ano",
	680: "Mrk",
	974: "Orál",
}

var (
	privmsgReply = regexp.MustCompile(`^(:\S+ PRIVMSG \S+ :)(.*)$`)
	smileyCode   = regexp.MustCompile(`\*(\d+)\*`)
)

// Smileys replaces *N* smiley codes in incoming chat lines with their names.
type Smileys struct{}

func (Smileys) Name() string { return "smileys" }

func (Smileys) Transform(env *Envelope) bool {
	if env.Reply == "" {
		return true
	}
	m := privmsgReply.FindStringSubmatch(env.Reply)
	if m == nil {
		return true
	}
	text := smileyCode.ReplaceAllStringFunc(m[2], func(code string) string {
		n, err := strconv.Atoi(strings.Trim(code, "*"))
		if err != nil {
			return code
		}
		if name, ok := smileyNames[n]; ok {
			return "*" + name + "*"
		}
		return code
	})
	env.Replies = append(env.Replies, m[1]+text)
	return true
}
