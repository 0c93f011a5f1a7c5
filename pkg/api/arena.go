package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/pashagolub/flasharena/pkg/data"
)

// CreateArena opens a session for the given students
func (c *Client) CreateArena(ctx context.Context, studentIDs []string, numRounds int) (data.ArenaSession, error) {
	var session data.ArenaSession
	err := c.do(ctx, call{
		op:     "create arena session",
		method: http.MethodPost,
		path:   "/arena",
		body:   data.CreateArenaRequest{StudentIDs: studentIDs, NumRounds: numRounds},
	}, &session)
	return session, err
}

// NextMatch asks the backend to pair the next two players
func (c *Client) NextMatch(ctx context.Context, arenaID string) (data.RawMatch, error) {
	var match data.RawMatch
	err := c.do(ctx, call{
		op:     "get next match",
		method: http.MethodGet,
		path:   "/arena/" + url.PathEscape(arenaID) + "/next-match",
	}, &match)
	return match, err
}

// SetMatchWinner records the winners of a match and returns the updated match and session
func (c *Client) SetMatchWinner(ctx context.Context, matchID string, winnerIDs []string) (data.MatchWinnerResponse, error) {
	var resp data.MatchWinnerResponse
	err := c.do(ctx, call{
		op:     "set match winner",
		method: http.MethodPatch,
		path:   "/arena/matches/" + url.PathEscape(matchID) + "/winner",
		body:   data.SetWinnerRequest{WinnerIDs: winnerIDs},
	}, &resp)
	return resp, err
}

// ArenaResults fetches the final standings. The backend has been seen to
// return either {rankings, matches} or a bare rankings list; both are accepted.
func (c *Client) ArenaResults(ctx context.Context, arenaID string) (data.ArenaResults, error) {
	var raw json.RawMessage
	cl := call{
		op:     "get arena results",
		method: http.MethodGet,
		path:   "/arena/" + url.PathEscape(arenaID) + "/results",
	}
	if err := c.do(ctx, cl, &raw); err != nil {
		return data.ArenaResults{}, err
	}

	var results data.ArenaResults
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &results.Rankings); err != nil {
			return data.ArenaResults{}, c.decodeError(cl, err)
		}
		return results, nil
	}
	if len(trimmed) > 0 {
		if err := json.Unmarshal(trimmed, &results); err != nil {
			return data.ArenaResults{}, c.decodeError(cl, err)
		}
	}
	return results, nil
}
