package models

import (
	"slices"

	"github.com/samber/lo"
)

// SaveRef records which of a user's linked platforms currently claim one content id.
//
// Owners is kept sorted and duplicate-free so an unchanged ref encodes to identical bytes.
// A ref with no owners is never stored; [UserLibraryIndex.RemovePlatform] deletes it instead.
type SaveRef struct {
	ID     string     `json:"id"`
	Owners []Platform `json:"ownerPlatforms"`
}

// Has reports whether p owns the ref.
func (r *SaveRef) Has(p Platform) bool {
	_, found := slices.BinarySearch(r.Owners, p)
	return found
}

// Empty reports whether no platform owns the ref.
func (r *SaveRef) Empty() bool {
	return len(r.Owners) == 0
}

func (r *SaveRef) add(p Platform) bool {
	i, found := slices.BinarySearch(r.Owners, p)
	if found {
		return false
	}
	r.Owners = slices.Insert(r.Owners, i, p)
	return true
}

func (r *SaveRef) remove(p Platform) bool {
	i, found := slices.BinarySearch(r.Owners, p)
	if !found {
		return false
	}
	r.Owners = slices.Delete(r.Owners, i, i+1)
	return true
}

// UserLibraryIndex is the per-user ownership index, stored as one document per user.
type UserLibraryIndex struct {
	UID         string              `json:"uid"`
	LikedTracks map[string]*SaveRef `json:"likedTracks"`
	Playlists   map[string]*SaveRef `json:"playlists"`
	Albums      map[string]*SaveRef `json:"albums"`
	Artists     map[string]*SaveRef `json:"artists"`
}

// NewUserLibraryIndex returns an empty index for uid.
func NewUserLibraryIndex(uid string) *UserLibraryIndex {
	idx := &UserLibraryIndex{UID: uid}
	idx.ensure()
	return idx
}

// ensure allocates nil maps, e.g. after decoding a document written with empty sections omitted.
func (idx *UserLibraryIndex) ensure() {
	if idx.LikedTracks == nil {
		idx.LikedTracks = map[string]*SaveRef{}
	}
	if idx.Playlists == nil {
		idx.Playlists = map[string]*SaveRef{}
	}
	if idx.Albums == nil {
		idx.Albums = map[string]*SaveRef{}
	}
	if idx.Artists == nil {
		idx.Artists = map[string]*SaveRef{}
	}
}

func (idx *UserLibraryIndex) refs(kind ContentKind) map[string]*SaveRef {
	idx.ensure()
	switch kind {
	case KindTrack:
		return idx.LikedTracks
	case KindPlaylist:
		return idx.Playlists
	case KindAlbum:
		return idx.Albums
	case KindArtist:
		return idx.Artists
	default:
		return nil
	}
}

// AddPlatform records p as an owner of id, creating the ref if absent.
// It returns true when ownership changed.
func (idx *UserLibraryIndex) AddPlatform(kind ContentKind, id string, p Platform) bool {
	refs := idx.refs(kind)
	if refs == nil || id == "" || !p.Valid() {
		return false
	}
	ref, ok := refs[id]
	if !ok {
		ref = &SaveRef{ID: id}
		refs[id] = ref
	}
	return ref.add(p)
}

// RemovePlatform drops p from id's owners and deletes the ref once nobody owns it.
// It returns true when ownership changed.
func (idx *UserLibraryIndex) RemovePlatform(kind ContentKind, id string, p Platform) bool {
	refs := idx.refs(kind)
	ref, ok := refs[id]
	if !ok {
		return false
	}
	changed := ref.remove(p)
	if ref.Empty() {
		delete(refs, id)
	}
	return changed
}

// Ref returns the ref for id, or nil when no platform owns it.
func (idx *UserLibraryIndex) Ref(kind ContentKind, id string) *SaveRef {
	return idx.refs(kind)[id]
}

// Len returns the number of refs held for kind.
func (idx *UserLibraryIndex) Len(kind ContentKind) int {
	return len(idx.refs(kind))
}

// ByPlatform returns exactly the ids whose ref lists p, sorted for stable output.
func (idx *UserLibraryIndex) ByPlatform(kind ContentKind, p Platform) []string {
	ids := make([]string, 0)
	for id, ref := range idx.refs(kind) {
		if ref.Has(p) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// ByPlatforms returns the union of [UserLibraryIndex.ByPlatform] over ps, without duplicates.
func (idx *UserLibraryIndex) ByPlatforms(kind ContentKind, ps ...Platform) []string {
	var ids []string
	for _, p := range lo.Uniq(ps) {
		ids = append(ids, idx.ByPlatform(kind, p)...)
	}
	ids = lo.Uniq(ids)
	slices.Sort(ids)
	return ids
}
