// Minimal end-to-end smoke test for the Town Hall API.
//
// Walks the whole civic loop against a running instance: register two
// citizens, found a community, post, comment, run an election, and open a
// proposal. Exits non-zero on the first unexpected status.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

var baseURL = getenv("API_URL", "http://localhost:8080/v1")

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func main() {
	suffix := fmt.Sprintf("%d", time.Now().UnixNano()%1000000)

	founderName := "founder" + suffix
	founder := register(founderName, "correct-horse-battery")
	voter := register("voter"+suffix, "correct-horse-battery")

	communityID := createCommunity(founder, "plaza"+suffix)
	postID := createPost(founder, communityID)
	createComment(voter, postID)

	expectStatus("POST", "/posts/"+postID+"/upvotes", voter, nil, http.StatusCreated)
	// One upvote per citizen per post.
	expectStatus("POST", "/posts/"+postID+"/upvotes", voter, nil, http.StatusConflict)
	checkProfile(founderName)

	electionID := startElection(founder, communityID)
	candidateID := declareCandidacy(founder, electionID)
	castVote(voter, electionID, candidateID)
	// Second vote by the same citizen must bounce.
	expectStatus("POST", "/elections/"+electionID+"/votes", voter,
		map[string]any{"candidateId": candidateID}, http.StatusConflict)

	proposalID := createProposal(founder)
	expectStatus("POST", "/proposals/"+proposalID+"/votes", voter,
		map[string]any{"choice": "yes"}, http.StatusCreated)

	checkBudget(voter)
	checkConstitution()

	logout(voter)
	// The revoked token is dead.
	expectStatus("GET", "/budget", voter, nil, http.StatusUnauthorized)

	fmt.Println("✓ all endpoints passed")
}

// ----------------------------- auth

func register(username, password string) string {
	var resp struct{ Token string }
	doJSON("POST", "/auth/register", "", map[string]any{
		"username": username,
		"password": password,
	}, &resp, http.StatusCreated)
	if resp.Token == "" {
		log.Fatal("register: empty token")
	}
	return resp.Token
}

func logout(token string) {
	expectStatus("POST", "/auth/logout", token, nil, http.StatusNoContent)
}

// ----------------------------- civic actions

func createCommunity(token, name string) string {
	var resp struct{ ID string }
	doJSON("POST", "/communities", token, map[string]any{
		"name":        name,
		"description": "smoke test grounds",
	}, &resp, http.StatusCreated)
	return resp.ID
}

func createPost(token, communityID string) string {
	var resp struct{ ID string }
	doJSON("POST", "/posts", token, map[string]any{
		"communityId": communityID,
		"title":       "first post",
		"body":        "<p>hello town hall</p>",
	}, &resp, http.StatusCreated)
	return resp.ID
}

func createComment(token, postID string) {
	expectStatus("POST", "/posts/"+postID+"/comments", token,
		map[string]any{"body": "seconded"}, http.StatusCreated)
}

func startElection(token, communityID string) string {
	var resp struct{ ID string }
	doJSON("POST", "/communities/"+communityID+"/elections", token, nil, &resp, http.StatusCreated)
	return resp.ID
}

func declareCandidacy(token, electionID string) string {
	var resp struct{ ID string }
	doJSON("POST", "/elections/"+electionID+"/candidates", token,
		map[string]any{"manifesto": "more benches in the plaza"}, &resp, http.StatusCreated)
	return resp.ID
}

func castVote(token, electionID, candidateID string) {
	expectStatus("POST", "/elections/"+electionID+"/votes", token,
		map[string]any{"candidateId": candidateID}, http.StatusCreated)
}

func createProposal(token string) string {
	var resp struct{ ID string }
	doJSON("POST", "/proposals", token, map[string]any{
		"title": "raise the daily limit",
		"key":   "daily_energy_limit",
		"value": "15",
	}, &resp, http.StatusCreated)
	return resp.ID
}

// ----------------------------- reads

func checkBudget(token string) {
	var resp struct {
		Remaining int
		Limit     int
	}
	doJSON("GET", "/budget", token, nil, &resp, http.StatusOK)
	if resp.Remaining >= resp.Limit {
		log.Fatalf("budget: expected spent actions, got %d/%d remaining", resp.Remaining, resp.Limit)
	}
	fmt.Printf("budget: %d/%d remaining\n", resp.Remaining, resp.Limit)
}

func checkProfile(username string) {
	var resp struct {
		Username string
		Karma    int
	}
	doJSON("GET", "/users/"+username, "", nil, &resp, http.StatusOK)
	if resp.Username != username {
		log.Fatalf("profile: got username %q", resp.Username)
	}
	if resp.Karma < 1 {
		log.Fatalf("profile: expected karma from the upvote, got %d", resp.Karma)
	}
}

func checkConstitution() {
	var resp struct {
		Config    map[string]string
		Proposals []struct{ ID string }
	}
	doJSON("GET", "/constitution", "", nil, &resp, http.StatusOK)
	if resp.Config["daily_energy_limit"] == "" {
		log.Fatal("constitution: missing daily_energy_limit")
	}
	if len(resp.Proposals) == 0 {
		log.Fatal("constitution: expected at least one open proposal")
	}
}

// ----------------------------- plumbing

func doJSON(method, path, token string, body, out any, want int) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			log.Fatalf("%s %s: encode: %v", method, path, err)
		}
	}
	req, err := http.NewRequest(method, baseURL+path, &buf)
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		var detail json.RawMessage
		_ = json.NewDecoder(resp.Body).Decode(&detail)
		log.Fatalf("%s %s: status %d (want %d): %s", method, path, resp.StatusCode, want, detail)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			log.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
}

func expectStatus(method, path, token string, body any, want int) {
	doJSON(method, path, token, body, nil, want)
}
