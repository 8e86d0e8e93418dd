package activitypub

import (
	"encoding/json"

	"github.com/d60-Lab/fanout-engine/internal/model"
)

// ActivityStreams context and the public addressing collection.
const (
	Context = "https://www.w3.org/ns/activitystreams"
	Public  = "https://www.w3.org/ns/activitystreams#Public"
)

// Document is an activity in its pre-serialization form.
type Document map[string]any

// Canonicalise renders a document to the stable byte form used for
// signing and delivery (encoding/json emits map keys sorted).
func Canonicalise(doc Document) ([]byte, error) {
	return json.Marshal(doc)
}

func noteObject(post *model.Post) map[string]any {
	obj := map[string]any{
		"id":           post.ObjectURI,
		"type":         "Note",
		"attributedTo": post.Author.ActorURI,
		"content":      post.Content,
		"to":           []string{Public},
		"published":    post.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if post.InReplyTo != nil {
		obj["inReplyTo"] = *post.InReplyTo
	}
	if len(post.Mentions) > 0 {
		tags := make([]map[string]any, 0, len(post.Mentions))
		for _, m := range post.Mentions {
			tags = append(tags, map[string]any{
				"type": "Mention",
				"href": m.ActorURI,
				"name": "@" + m.Handle(),
			})
		}
		obj["tag"] = tags
	}
	return obj
}

// Create wraps a post as a Create activity.
func Create(post *model.Post) Document {
	return Document{
		"@context": Context,
		"id":       post.ObjectURI + "#create",
		"type":     "Create",
		"actor":    post.Author.ActorURI,
		"to":       []string{Public},
		"object":   noteObject(post),
	}
}

// Update wraps an edited post as an Update activity.
func Update(post *model.Post) Document {
	return Document{
		"@context": Context,
		"id":       post.ObjectURI + "#update",
		"type":     "Update",
		"actor":    post.Author.ActorURI,
		"to":       []string{Public},
		"object":   noteObject(post),
	}
}

// Delete wraps a deleted post as a Delete activity with a Tombstone object.
func Delete(post *model.Post) Document {
	return Document{
		"@context": Context,
		"id":       post.ObjectURI + "#delete",
		"type":     "Delete",
		"actor":    post.Author.ActorURI,
		"to":       []string{Public},
		"object": map[string]any{
			"id":   post.ObjectURI,
			"type": "Tombstone",
		},
	}
}

// Interaction renders a like as Like and a boost as Announce.
func Interaction(i *model.PostInteraction) Document {
	typ := "Like"
	if i.Kind == model.InteractionBoost {
		typ = "Announce"
	}
	return Document{
		"@context": Context,
		"id":       i.ActivityURI,
		"type":     typ,
		"actor":    i.Identity.ActorURI,
		"to":       []string{Public},
		"object":   i.Post.ObjectURI,
	}
}

// Undo wraps an interaction's activity in an Undo.
func Undo(i *model.PostInteraction) Document {
	inner := Interaction(i)
	delete(inner, "@context")
	return Document{
		"@context": Context,
		"id":       i.ActivityURI + "#undo",
		"type":     "Undo",
		"actor":    i.Identity.ActorURI,
		"to":       []string{Public},
		"object":   inner,
	}
}
