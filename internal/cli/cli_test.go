package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/parksync/internal/api/response"
	"github.com/mcoot/parksync/internal/model"
	"github.com/mcoot/parksync/internal/services/keys"
	"github.com/mcoot/parksync/internal/storage/file"
)

type CLISuite struct {
	suite.Suite
	keyDir  string
	dataDir string
}

func TestCLISuite(t *testing.T) {
	suite.Run(t, new(CLISuite))
}

func (s *CLISuite) SetupTest() {
	dir := s.T().TempDir()
	s.keyDir = filepath.Join(dir, "keys")
	s.dataDir = filepath.Join(dir, "registry")
}

func (s *CLISuite) run(args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{
		"--key-dir", s.keyDir,
		"--data-dir", s.dataDir,
		"--storage", "file",
		"--log-level", "error",
	}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func (s *CLISuite) runJSON(v any, args ...string) {
	out, err := s.run(append([]string{"-o", "json"}, args...)...)
	s.Require().NoError(err)
	s.Require().NoError(json.Unmarshal([]byte(out), v), out)
}

func (s *CLISuite) TestKeysGenerateAndShow() {
	var generated KeyInfo
	s.runJSON(&generated, "keys", "generate", "Alice")

	s.Equal("Alice", generated.Name)
	fp, err := keys.Fingerprint(generated.PublicKey)
	s.Require().NoError(err)
	s.Equal(fp, generated.Fingerprint)

	var shown KeyInfo
	s.runJSON(&shown, "keys", "show", "Alice")
	s.Equal(generated, shown)
}

func (s *CLISuite) TestKeysGenerateKeepsExistingKey() {
	var first, second, forced KeyInfo
	s.runJSON(&first, "keys", "generate", "Alice")
	s.runJSON(&second, "keys", "generate", "Alice")
	s.runJSON(&forced, "keys", "generate", "Alice", "--force")

	s.Equal(first.Fingerprint, second.Fingerprint)
	s.NotEqual(first.Fingerprint, forced.Fingerprint)
}

func (s *CLISuite) TestKeysShowMissing() {
	_, err := s.run("keys", "show", "Nobody")
	s.ErrorIs(err, keys.ErrKeyNotFound)
}

func (s *CLISuite) TestKeysTextOutput() {
	out, err := s.run("keys", "generate", "Alice")
	s.Require().NoError(err)
	s.Contains(out, "Name: Alice")
	s.Contains(out, "Fingerprint: ")
	s.Contains(out, "BEGIN PUBLIC KEY")
}

func (s *CLISuite) TestGroupsListDefaults() {
	var groups response.GroupsResponse
	s.runJSON(&groups, "groups", "list")

	s.Require().Len(groups.Groups, 3)
	s.Equal(uint8(model.DefaultGroupID), groups.Default)
	s.Equal("Admin", groups.Groups[0].Name)
	s.Len(groups.Groups[0].Permissions, len(model.Permissions()))
	s.Equal([]string{model.PermissionChat.String()}, groups.Groups[1].Permissions)
}

func (s *CLISuite) TestGroupsListStored() {
	store, err := file.New(s.dataDir)
	s.Require().NoError(err)
	stored := model.DefaultGroups()
	stored.Groups = append(stored.Groups, model.Group{ID: 3, Name: "Builders", Permissions: model.NewPermissionSet(model.PermissionChat)})
	stored.Default = 3
	s.Require().NoError(store.SaveGroups(context.Background(), stored))

	out, err := s.run("groups", "list")
	s.Require().NoError(err)
	s.Contains(out, "3: Builders [default]")

	_, err = s.run("groups", "reset")
	s.Require().NoError(err)

	var groups response.GroupsResponse
	s.runJSON(&groups, "groups", "list")
	s.Len(groups.Groups, 3)
}

func (s *CLISuite) TestUsersListAndForget() {
	store, err := file.New(s.dataDir)
	s.Require().NoError(err)
	group := model.UserGroupID
	s.Require().NoError(store.SaveKnownUser(context.Background(), &model.KnownUser{Hash: "abc123", Name: "Alice", GroupID: &group}))

	out, err := s.run("users", "list")
	s.Require().NoError(err)
	s.Contains(out, "abc123")
	s.Contains(out, "Alice")

	_, err = s.run("users", "forget", "abc123")
	s.Require().NoError(err)

	out, err = s.run("users", "list")
	s.Require().NoError(err)
	s.Contains(out, "No known users")
}

func (s *CLISuite) TestInvalidLogFormat() {
	_, err := s.run("--log-format", "xml", "groups", "list")
	s.ErrorContains(err, "invalid log format")
}

func (s *CLISuite) TestInvalidStorage() {
	_, err := s.run("--storage", "postgres", "groups", "list")
	s.Error(err)
}

func (s *CLISuite) TestHostRejectsUnknownCompression() {
	_, err := s.run("host", "--compression", "brotli", "--duration", "1ms")
	s.ErrorContains(err, "unknown compression")
}

func (s *CLISuite) TestHostRunsForDuration() {
	out, err := s.run("host", "--port", "0", "--bind", "127.0.0.1", "--tick", "5ms", "--duration", "100ms")
	s.Require().NoError(err)
	s.Contains(out, "Stopped at tick")
}

func (s *CLISuite) TestInfoUnreachable() {
	_, err := s.run("info", "127.0.0.1", "--port", "1", "--timeout", "2s")
	s.Error(err)
}
