package core

import "fmt"

type KeyKind string

const (
	KindDetails  KeyKind = "details"
	KindLikes    KeyKind = "likes"
	KindComments KeyKind = "comments"
	KindProfile  KeyKind = "profile"
	KindUploads  KeyKind = "uploads"
	KindLiked    KeyKind = "liked"
)

// Key addresses one persisted snapshot. Meme kinds are keyed by meme id,
// user kinds by user name.
type Key struct {
	Kind KeyKind
	ID   string
}

func DetailsKey(memeID string) Key  { return Key{Kind: KindDetails, ID: memeID} }
func LikesKey(memeID string) Key    { return Key{Kind: KindLikes, ID: memeID} }
func CommentsKey(memeID string) Key { return Key{Kind: KindComments, ID: memeID} }

func (k Key) Valid() bool {
	if k.ID == "" {
		return false
	}
	switch k.Kind {
	case KindDetails, KindLikes, KindComments, KindProfile, KindUploads, KindLiked:
		return true
	default:
		return false
	}
}

func (k Key) String() string {
	switch k.Kind {
	case KindDetails, KindLikes, KindComments:
		return fmt.Sprintf("meme_%s_%s", k.Kind, k.ID)
	case KindProfile:
		return "user_profile_" + k.ID
	case KindUploads:
		return "user_uploaded_memes_" + k.ID
	case KindLiked:
		return "user_liked_memes_" + k.ID
	default:
		return fmt.Sprintf("%s_%s", k.Kind, k.ID)
	}
}
