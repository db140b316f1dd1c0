package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gondar-software/domain-manager/internal/api/dto/v1/domain"
	"github.com/gondar-software/domain-manager/internal/models"
	"github.com/gondar-software/domain-manager/internal/nginx"
)

func TestParseRoute(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    domain.HostRequest
		wantErr bool
	}{
		{
			name: "default",
			in:   "/=http://localhost:9000",
			want: domain.HostRequest{Type: "default", Path: "/", Host: "http://localhost:9000"},
		},
		{
			name: "websocket",
			in:   "websocket:/ws=http://localhost:9001",
			want: domain.HostRequest{Type: "websocket", Path: "/ws", Host: "http://localhost:9001"},
		},
		{
			name: "explicit default",
			in:   "default:/api=http://10.0.0.2:8080",
			want: domain.HostRequest{Type: "default", Path: "/api", Host: "http://10.0.0.2:8080"},
		},
		{name: "no target", in: "/api", wantErr: true},
		{name: "empty target", in: "/api=", wantErr: true},
		{name: "unknown type", in: "grpc:/x=http://localhost:1", wantErr: true},
		{name: "relative path", in: "api=http://localhost:1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRoute(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRoutesRequiresOne(t *testing.T) {
	_, err := parseRoutes(nil)
	assert.Error(t, err)
}

func TestBuildDomain(t *testing.T) {
	d, err := buildDomain("Blog", "example.com", []string{"/=http://localhost:9000", "websocket:/ws=http://localhost:9001"})
	require.NoError(t, err)
	assert.Equal(t, "blog.example.com", d.Name)
	require.Len(t, d.Hosts, 2)
	assert.Equal(t, models.HostTypeWebSocket, d.Hosts[1].Type)

	codec := nginx.NewCodec("")
	text, err := codec.Insert(nginx.DefaultConfig, d)
	require.NoError(t, err)
	parsed := codec.Parse(text)
	require.Len(t, parsed, 1)
	assert.True(t, parsed[0].Equal(d))

	_, err = buildDomain("blog", "example.com", []string{"/=http://a:1", "/=http://b:2"})
	assert.ErrorIs(t, err, models.ErrDuplicatePath)

	_, err = buildDomain("bad name!", "example.com", []string{"/=http://a:1"})
	assert.Error(t, err)

	_, err = buildDomain("www.shop", "example.com", []string{"/=http://a:1"})
	assert.Error(t, err)
}
