package server

import (
	"context"
	"fmt"

	"github.com/jihwannnn/likebox-2024-test/internal/models"
	"github.com/jihwannnn/likebox-2024-test/internal/shared"
)

type platformRequest struct {
	Platform models.Platform `json:"platform"`
}

type tokenRequest struct {
	Platform models.Platform `json:"platform"`
	Code     string          `json:"code"`
}

type syncRequest struct {
	Platform    models.Platform    `json:"platform"`
	ContentType models.ContentKind `json:"contentType"`
}

type likedRequest struct {
	Platform models.Platform    `json:"platform"`
	Type     models.ContentKind `json:"type"`
}

type platformsRequest struct {
	Platforms []models.Platform `json:"platforms"`
}

type contentRequest struct {
	TrackID     string   `json:"trackId"`
	TrackIDs    []string `json:"trackIds"`
	PlaylistID  string   `json:"playlistId"`
	PlaylistIDs []string `json:"playlistIds"`
	AlbumID     string   `json:"albumId"`
	AlbumIDs    []string `json:"albumIds"`
	ArtistID    string   `json:"artistId"`
	ArtistIDs   []string `json:"artistIds"`
}

type infoRequest struct {
	Info struct {
		ConnectedPlatforms []models.Platform `json:"connectedPlatforms"`
	} `json:"info"`
}

type settingRequest struct {
	Setting models.Setting `json:"setting"`
}

type syncResult struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
}

func (s *Server) registerFunctions() map[string]function {
	fns := map[string]function{
		"createDefault": {fn: s.createDefault},
		"generateUrl":   {fn: s.generateURL, anonymous: true},

		"generateToken":   {fn: s.generateToken},
		"verifyToken":     {fn: s.verifyToken},
		"removeToken":     {fn: s.removeToken},
		"removeAllTokens": {fn: s.removeAllTokens},

		"synchContent": {fn: s.synchContent},
		"syncAll":      {fn: s.syncAll},

		"getLikedContent": {fn: s.getLikedContent},

		"checkInfo":     {fn: s.checkInfo},
		"updateInfo":    {fn: s.updateInfo},
		"checkSetting":  {fn: s.checkSetting},
		"updateSetting": {fn: s.updateSetting},
	}

	for _, kind := range models.ContentKinds() {
		name := kindName(kind)
		fns["get"+name] = function{fn: s.getOne(kind)}
		fns["get"+name+"s"] = function{fn: s.getMany(kind)}
		fns["getPlatforms"+name+"s"] = function{fn: s.getPlatforms(kind)}
	}

	return fns
}

func kindName(kind models.ContentKind) string {
	switch kind {
	case models.KindTrack:
		return "Track"
	case models.KindPlaylist:
		return "Playlist"
	case models.KindAlbum:
		return "Album"
	case models.KindArtist:
		return "Artist"
	default:
		return ""
	}
}

func (s *Server) createDefault(ctx context.Context, call *Call) (any, error) {
	if err := s.library.CreateDefault(ctx, call.UID); err != nil {
		return nil, err
	}
	return Reply{Success: true, Message: "Default setting created successfully"}, nil
}

// generateURL returns the platform authorization URL. Signed-in callers get a state bound to
// their uid so the OAuth callback can link the platform on their behalf.
func (s *Server) generateURL(ctx context.Context, call *Call) (any, error) {
	req, err := bind[platformRequest](call)
	if err != nil {
		return nil, err
	}
	if !req.Platform.Valid() {
		return nil, fmt.Errorf("%w: platform", shared.ErrMissingArgument)
	}

	state := shared.GenerateID()
	if call.UID != "" {
		if state, err = s.state.Sign(call.UID, req.Platform); err != nil {
			return nil, err
		}
	}

	url, err := s.tokens.AuthURL(req.Platform, state)
	if err != nil {
		return nil, err
	}
	return Reply{Success: true, Data: url}, nil
}

func (s *Server) generateToken(ctx context.Context, call *Call) (any, error) {
	req, err := bind[tokenRequest](call)
	if err != nil {
		return nil, err
	}
	if _, err := s.tokens.Link(ctx, call.UID, req.Platform, req.Code); err != nil {
		return nil, err
	}
	return Reply{Success: true, Message: "Token saved successfully."}, nil
}

func (s *Server) verifyToken(ctx context.Context, call *Call) (any, error) {
	req, err := bind[platformRequest](call)
	if err != nil {
		return nil, err
	}
	_, refreshed, err := s.tokens.EnsureFresh(ctx, call.UID, req.Platform)
	if err != nil {
		return nil, err
	}

	msg := "Access token is valid"
	if refreshed {
		msg = "Access token refreshed successfully"
	}
	return Reply{Success: true, Message: msg, Data: map[string]bool{"refreshed": refreshed}}, nil
}

func (s *Server) removeToken(ctx context.Context, call *Call) (any, error) {
	req, err := bind[platformRequest](call)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Unlink(ctx, call.UID, req.Platform); err != nil {
		return nil, err
	}
	return Reply{Success: true, Message: "Token removed successfully."}, nil
}

func (s *Server) removeAllTokens(ctx context.Context, call *Call) (any, error) {
	removed, err := s.tokens.UnlinkAll(ctx, call.UID)
	if err != nil {
		return nil, err
	}
	return Reply{Success: true, Message: "All tokens removed successfully.", Data: removed}, nil
}

func (s *Server) synchContent(ctx context.Context, call *Call) (any, error) {
	req, err := bind[syncRequest](call)
	if err != nil {
		return nil, err
	}
	res, err := s.reconcile.Reconcile(ctx, call.UID, req.Platform, req.ContentType, nil)
	if err != nil {
		return nil, err
	}
	return Reply{
		Success: true,
		Message: fmt.Sprintf("Successfully saved %s", req.ContentType),
		Data:    syncResult{Added: res.Added, Removed: res.Removed},
	}, nil
}

func (s *Server) syncAll(ctx context.Context, call *Call) (any, error) {
	req, err := bind[platformRequest](call)
	if err != nil {
		return nil, err
	}
	if !req.Platform.Valid() {
		return nil, fmt.Errorf("%w: %v", shared.ErrUnknownPlatform, req.Platform)
	}

	results, err := s.reconcile.ReconcileAll(ctx, call.UID, req.Platform, nil)
	if err != nil {
		return nil, err
	}

	data := make(map[string]syncResult, len(results))
	for _, res := range results {
		data[res.Kind.String()] = syncResult{Added: res.Added, Removed: res.Removed}
	}
	return Reply{Success: true, Data: data}, nil
}

func (s *Server) getLikedContent(ctx context.Context, call *Call) (any, error) {
	req, err := bind[likedRequest](call)
	if err != nil {
		return nil, err
	}
	content, err := s.library.LikedContent(ctx, call.UID, req.Platform, req.Type)
	if err != nil {
		return nil, err
	}
	return Reply{Success: content.Found, Data: content}, nil
}

func (s *Server) getOne(kind models.ContentKind) Function {
	return func(ctx context.Context, call *Call) (any, error) {
		req, err := bind[contentRequest](call)
		if err != nil {
			return nil, err
		}

		var data any
		switch kind {
		case models.KindTrack:
			data, err = s.library.GetTrack(ctx, req.TrackID)
		case models.KindPlaylist:
			data, err = s.library.GetPlaylist(ctx, req.PlaylistID)
		case models.KindAlbum:
			data, err = s.library.GetAlbum(ctx, req.AlbumID)
		case models.KindArtist:
			data, err = s.library.GetArtist(ctx, req.ArtistID)
		}
		if err != nil {
			return nil, err
		}
		return Reply{Success: true, Data: data}, nil
	}
}

func (s *Server) getMany(kind models.ContentKind) Function {
	return func(ctx context.Context, call *Call) (any, error) {
		req, err := bind[contentRequest](call)
		if err != nil {
			return nil, err
		}

		var data any
		switch kind {
		case models.KindTrack:
			data, err = s.library.GetTracks(ctx, req.TrackIDs)
		case models.KindPlaylist:
			data, err = s.library.GetPlaylists(ctx, req.PlaylistIDs)
		case models.KindAlbum:
			data, err = s.library.GetAlbums(ctx, req.AlbumIDs)
		case models.KindArtist:
			data, err = s.library.GetArtists(ctx, req.ArtistIDs)
		}
		if err != nil {
			return nil, err
		}
		return Reply{Success: true, Data: data}, nil
	}
}

func (s *Server) getPlatforms(kind models.ContentKind) Function {
	return func(ctx context.Context, call *Call) (any, error) {
		req, err := bind[platformsRequest](call)
		if err != nil {
			return nil, err
		}
		content, err := s.library.PlatformsContent(ctx, call.UID, kind, req.Platforms)
		if err != nil {
			return nil, err
		}
		return Reply{Success: content.Found, Data: content}, nil
	}
}

func (s *Server) checkInfo(ctx context.Context, call *Call) (any, error) {
	info, err := s.library.Info(ctx, call.UID)
	if err != nil {
		return nil, err
	}
	return Reply{Success: true, Data: info}, nil
}

func (s *Server) updateInfo(ctx context.Context, call *Call) (any, error) {
	req, err := bind[infoRequest](call)
	if err != nil {
		return nil, err
	}
	info, err := s.library.UpdateInfo(ctx, call.UID, req.Info.ConnectedPlatforms)
	if err != nil {
		return nil, err
	}
	return Reply{Success: true, Message: "Info updated.", Data: info}, nil
}

func (s *Server) checkSetting(ctx context.Context, call *Call) (any, error) {
	setting, err := s.library.Setting(ctx, call.UID)
	if err != nil {
		return nil, err
	}
	return Reply{Success: true, Data: setting}, nil
}

func (s *Server) updateSetting(ctx context.Context, call *Call) (any, error) {
	req, err := bind[settingRequest](call)
	if err != nil {
		return nil, err
	}
	setting, err := s.library.UpdateSetting(ctx, call.UID, req.Setting)
	if err != nil {
		return nil, err
	}
	return Reply{Success: true, Message: "Setting updated.", Data: setting}, nil
}
