package jar_test

import (
	"sync"
	"testing"

	"decisionjar/internal/jar"
	"decisionjar/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

func TestIdeaSchemaParses(t *testing.T) {
	s, err := schema.Parse(&jar.Idea{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)

	f := s.LookUpField("Tags")
	require.NotNil(t, f)
	assert.Equal(t, schema.DataType("text"), f.DataType)
}

func TestTagsRoundTrip(t *testing.T) {
	gdb := testutil.NewDB(t)
	require.NoError(t, gdb.AutoMigrate(&jar.Idea{}))

	tagged := jar.Idea{GroupID: 1, CreatedBy: 1, Description: "Hike", Tags: jar.Tags{"outdoors", "with space", "a,b"}}
	bare := jar.Idea{GroupID: 1, CreatedBy: 1, Description: "Nap"}
	require.NoError(t, gdb.Create(&tagged).Error)
	require.NoError(t, gdb.Create(&bare).Error)

	var got jar.Idea
	require.NoError(t, gdb.First(&got, tagged.ID).Error)
	assert.Equal(t, jar.Tags{"outdoors", "with space", "a,b"}, got.Tags)

	var empty jar.Idea
	require.NoError(t, gdb.First(&empty, bare.ID).Error)
	assert.Empty(t, empty.Tags)
}
