package events

import (
	"fmt"
	"io"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/akinator/pkg/settings"
)

func roleLabel(role string) string {
	switch role {
	case settings.RoleGuesser:
		return "🔍 Guesser: "
	case settings.RoleAnswerer:
		return "🤖 Answerer: "
	default:
		return role + ": "
	}
}

// NarrationPrinterFunc returns a watermill handler that renders game and
// inference events as sequential console narration. Streamed fragments are
// printed as they arrive; the complete question or answer is only printed
// when nothing was streamed for that turn and role.
func NarrationPrinterFunc(w io.Writer) func(msg *message.Message) error {
	streamed := map[string]bool{}
	key := func(md EventMetadata) string {
		return fmt.Sprintf("%s/%d/%s", md.SessionID, md.Turn, md.Role)
	}

	printText := func(md EventMetadata, text string) error {
		k := key(md)
		if streamed[k] {
			delete(streamed, k)
			if strings.HasSuffix(text, "\n") {
				return nil
			}
			_, err := fmt.Fprintln(w)
			return err
		}
		_, err := fmt.Fprintf(w, "%s%s\n", roleLabel(md.Role), text)
		return err
	}

	return func(msg *message.Message) error {
		defer msg.Ack()

		e, err := NewEventFromJson(msg.Payload)
		if err != nil {
			return err
		}

		switch p_ := e.(type) {
		case *EventGameStart:
			_, err = fmt.Fprintf(w,
				"🎮 Starting AI vs AI Akinator!\n"+
					"🤖 The answerer AI knows the concept: '%s'\n"+
					"🔍 The guesser AI will try to figure it out!\n"+
					"📊 Maximum questions allowed: %d\n%s\n",
				p_.Concept, p_.MaxTurns, strings.Repeat("-", 50))

		case *EventTurnStart:
			_, err = fmt.Fprintf(w, "\n📝 Question %d\n", p_.Metadata_.Turn)

		case *EventPartialCompletion:
			k := key(p_.Metadata_)
			if !streamed[k] {
				streamed[k] = true
				if _, err = fmt.Fprint(w, roleLabel(p_.Metadata_.Role)); err != nil {
					return err
				}
			}
			_, err = fmt.Fprint(w, p_.Delta)

		case *EventText:
			err = printText(p_.Metadata_, p_.Text)

		case *EventGameEnd:
			if p_.Success {
				_, err = fmt.Fprintf(w,
					"\n🎉 SUCCESS! The guesser got it right!\n"+
						"✅ Correct answer: '%s'\n"+
						"🎯 Questions asked: %d\n",
					p_.Concept, p_.QuestionsAsked)
			} else {
				_, err = fmt.Fprintf(w,
					"\n❌ GAME OVER! Maximum questions (%d) reached.\n"+
						"🤔 The guesser couldn't figure out: '%s'\n",
					p_.MaxTurns, p_.Concept)
			}

		case *EventError:
			if p_.Type_ == EventTypeGameError {
				_, err = fmt.Fprintf(w, "\n💥 GAME FAILED: %s\n", p_.ErrorString)
			}

		case *EventPartialCompletionStart, *EventFinal:
		}

		return err
	}
}
