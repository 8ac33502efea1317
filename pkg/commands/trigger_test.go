package commands

import (
	"testing"
)

func TestCompilePatternAddressing(t *testing.T) {
	help := &Command{Label: "help", Trigger: `help`}
	about := &Command{Label: "about", Trigger: `about`, NoPrefix: true}

	tests := []struct {
		name    string
		cmd     *Command
		cc      ChannelContext
		defPref string
		input   string
		want    bool
	}{
		{
			name:    "plain prefix",
			cmd:     help,
			cc:      ChannelContext{Prefix: "/", MentionTag: "@Bot"},
			defPref: "/",
			input:   "/help",
			want:    true,
		},
		{
			name:    "bare mention tag",
			cmd:     help,
			cc:      ChannelContext{Prefix: "/", MentionTag: "@Bot"},
			defPref: "/",
			input:   "@Bot help",
			want:    true,
		},
		{
			name:    "prefix then mention tag",
			cmd:     help,
			cc:      ChannelContext{Prefix: "/", MentionTag: "@Bot"},
			defPref: "/",
			input:   "/ @Bot help",
			want:    true,
		},
		{
			name:    "leading whitespace and case folding",
			cmd:     help,
			cc:      ChannelContext{Prefix: "/", MentionTag: "@Bot"},
			defPref: "/",
			input:   "   /HELP  ",
			want:    true,
		},
		{
			name:    "trigger is a prefix of a longer word",
			cmd:     help,
			cc:      ChannelContext{Prefix: "/", MentionTag: "@Bot"},
			defPref: "/",
			input:   "/helper",
			want:    false,
		},
		{
			name:    "trigger embedded in a longer word",
			cmd:     help,
			cc:      ChannelContext{Prefix: "/", MentionTag: "@Bot"},
			defPref: "/",
			input:   "/xhelp",
			want:    false,
		},
		{
			name:    "unaddressed chatter",
			cmd:     help,
			cc:      ChannelContext{Prefix: "/", MentionTag: "@Bot"},
			defPref: "/",
			input:   "help",
			want:    false,
		},
		{
			name:    "custom prefix replaces default",
			cmd:     help,
			cc:      ChannelContext{Prefix: "!", MentionTag: "@Bot"},
			defPref: "/",
			input:   "!help",
			want:    true,
		},
		{
			name:    "old prefix alone stops working after change",
			cmd:     help,
			cc:      ChannelContext{Prefix: "!", MentionTag: "@Bot"},
			defPref: "/",
			input:   "/help",
			want:    false,
		},
		{
			name:    "default prefix with tag survives prefix change",
			cmd:     help,
			cc:      ChannelContext{Prefix: "!", MentionTag: "@Bot"},
			defPref: "/",
			input:   "/ @Bot help",
			want:    true,
		},
		{
			name:    "empty mention tag degrades to prefix only",
			cmd:     help,
			cc:      ChannelContext{Prefix: "/"},
			defPref: "/",
			input:   "/help",
			want:    true,
		},
		{
			name:    "regex metacharacters in prefix are literal",
			cmd:     help,
			cc:      ChannelContext{Prefix: ".*"},
			defPref: "/",
			input:   "xxhelp",
			want:    false,
		},
		{
			name:    "metacharacter prefix still matches literally",
			cmd:     help,
			cc:      ChannelContext{Prefix: ".*"},
			defPref: "/",
			input:   ".*help",
			want:    true,
		},
		{
			name:    "no-prefix command matches bare",
			cmd:     about,
			cc:      ChannelContext{Prefix: "/", MentionTag: "@Bot"},
			defPref: "/",
			input:   "  About ",
			want:    true,
		},
		{
			name:    "no-prefix command rejects trailing text",
			cmd:     about,
			cc:      ChannelContext{Prefix: "/", MentionTag: "@Bot"},
			defPref: "/",
			input:   "about you",
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re, err := compilePattern(tt.cmd, tt.cc, tt.defPref)
			if err != nil {
				t.Fatalf("compilePattern: %v", err)
			}
			if got := re.MatchString(tt.input); got != tt.want {
				t.Fatalf("MatchString(%q) = %v, want %v (pattern %s)", tt.input, got, tt.want, re)
			}
		})
	}
}

func TestCapturesFromNamedGroups(t *testing.T) {
	cmd := &Command{Label: "subscribe", Trigger: `subscribe\s+(?P<aliases>.+)`}
	cc := ChannelContext{Prefix: "/", MentionTag: "@Bot"}

	re, err := compilePattern(cmd, cc, "/")
	if err != nil {
		t.Fatalf("compilePattern: %v", err)
	}

	m := re.FindStringSubmatch("@Bot subscribe factorio, rimworld")
	if m == nil {
		t.Fatal("expected a match")
	}
	caps := capturesFrom(re, m)
	if got := caps.Get("aliases"); got != "factorio, rimworld" {
		t.Fatalf("aliases = %q", got)
	}
	if got := caps.List("aliases"); len(got) != 2 || got[0] != "factorio" || got[1] != "rimworld" {
		t.Fatalf("List(aliases) = %v", got)
	}
}

func TestCapturesListTrimsEmptyItems(t *testing.T) {
	caps := Captures{"aliases": " factorio ,, ,rimworld,"}
	got := caps.List("aliases")
	if len(got) != 2 || got[0] != "factorio" || got[1] != "rimworld" {
		t.Fatalf("List = %v", got)
	}
}
