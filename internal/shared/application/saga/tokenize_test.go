package saga

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitCamel(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"CreateUser", []string{"Create", "User"}},
		{"CreateBlogPost", []string{"Create", "Blog", "Post"}},
		{"UserCreated", []string{"User", "Created"}},
		{"HTTPServer", []string{"HTTP", "Server"}},
		{"HTTP2Error", []string{"HTTP2", "Error"}},
		{"publish", []string{"publish"}},
		{"ID", []string{"ID"}},
		{"snake_case_name", []string{"snake", "case", "name"}},
		{"", nil},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, splitCamel(tc.in), "input %q", tc.in)
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "createuser", normalize("CreateUser"))
	assert.Equal(t, "createuser", normalize("Create_User"))
	assert.Equal(t, "createuser", normalize("CREATE-USER"))
	assert.Equal(t, "createuser", normalize("  createUser  "))
}
