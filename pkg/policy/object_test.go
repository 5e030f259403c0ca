package policy_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ten99policy/ten99policy-go/pkg/policy"
)

func TestObject_SetAndGet(t *testing.T) {
	t.Parallel()

	obj := policy.NewObject("cn_1", policy.Options{})
	assert.Equal(t, "cn_1", obj.ID())
	assert.Empty(t, obj.Unsaved(), "seeding the id does not mark it dirty")

	require.NoError(t, obj.Set("email", "jane@example.com"))
	assert.True(t, obj.IsDirty("email"))
	assert.Equal(t, "jane@example.com", obj.GetString("email"))
	assert.Equal(t, []string{"id", "email"}, obj.Keys())

	_, err := obj.Get("phone")
	require.ErrorIs(t, err, policy.ErrFieldNotFound)

	var notFound *policy.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.False(t, notFound.Transient)
}

func TestObject_SetRejectsEmptyString(t *testing.T) {
	t.Parallel()

	obj := policy.NewObject("cn_1", policy.Options{})

	err := obj.Set("email", "")
	require.ErrorIs(t, err, policy.ErrInvalidValue)
	assert.Contains(t, err.Error(), "set Object.email to nil")
	assert.False(t, obj.Has("email"))

	// Update is the bulk path and accepts empty strings.
	require.NoError(t, obj.Update(map[string]interface{}{"email": ""}))
	assert.Equal(t, policy.Payload{"email": ""}, obj.Serialize(nil))
}

func TestObject_ReservedKeys(t *testing.T) {
	t.Parallel()

	obj := policy.NewObject("", policy.Options{})

	require.ErrorIs(t, obj.Set("_secret", 1), policy.ErrReservedField)
	require.ErrorIs(t, obj.Update(map[string]interface{}{"ok": 1, "_secret": 2}), policy.ErrReservedField)
	assert.False(t, obj.Has("ok"), "a rejected update changes nothing")

	_, err := obj.Get("_secret")
	require.ErrorIs(t, err, policy.ErrFieldNotFound)
}

func TestObject_Delete(t *testing.T) {
	t.Parallel()

	obj := policy.NewObject("cn_1", policy.Options{})
	require.NoError(t, obj.Set("email", "jane@example.com"))

	require.NoError(t, obj.Delete("email"))
	assert.False(t, obj.Has("email"))
	assert.False(t, obj.IsDirty("email"))
	assert.Empty(t, obj.Serialize(nil))

	require.ErrorIs(t, obj.Delete("email"), policy.ErrFieldNotFound)
}

func TestObject_FullRefreshMarksTransient(t *testing.T) {
	t.Parallel()

	obj := policy.ConstructFrom(map[string]interface{}{
		"id":    "cn_1",
		"email": "jane@example.com",
		"phone": "+15550100",
	}, policy.Options{}, nil)

	require.NoError(t, obj.Set("email", "janet@example.com"))

	obj.RefreshFrom(map[string]interface{}{"id": "cn_1", "email": "janet@example.com"}, policy.Options{}, false, nil)

	assert.Equal(t, []string{"phone"}, obj.Transient())
	assert.Empty(t, obj.Unsaved())

	_, err := obj.Get("phone")
	require.ErrorIs(t, err, policy.ErrFieldNotFound)

	var notFound *policy.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.True(t, notFound.Transient)
	assert.Contains(t, err.Error(), "HINT")
	assert.Contains(t, err.Error(), "email, id")

	// A field that comes back is no longer transient.
	obj.RefreshFrom(map[string]interface{}{"id": "cn_1", "phone": "+15550100"}, policy.Options{}, false, nil)
	assert.Equal(t, []string{"email"}, obj.Transient())
	assert.Equal(t, "+15550100", obj.GetString("phone"))
}

func TestObject_PartialRefresh(t *testing.T) {
	t.Parallel()

	obj := policy.ConstructFrom(map[string]interface{}{"id": "cn_1", "first_name": "Jane"}, policy.Options{}, nil)
	require.NoError(t, obj.Set("first_name", "Janet"))
	require.NoError(t, obj.Set("last_name", "Doe"))

	obj.RefreshFrom(map[string]interface{}{"first_name": "Janet"}, policy.Options{}, true, nil)

	assert.Equal(t, "cn_1", obj.ID(), "partial refresh keeps other fields")
	assert.Equal(t, []string{"last_name"}, obj.Unsaved())
	assert.Empty(t, obj.Transient())
}

func TestObject_RefreshInsertsKeysSorted(t *testing.T) {
	t.Parallel()

	obj := policy.ConstructFrom(map[string]interface{}{"zip": "x", "id": "a_1", "city": "Austin"}, policy.Options{}, nil)

	assert.Equal(t, []string{"city", "id", "zip"}, obj.Keys())

	require.NoError(t, obj.Set("name", "HQ"))
	assert.Equal(t, []string{"city", "id", "zip", "name"}, obj.Keys())

	obj.RefreshFrom(map[string]interface{}{"zip": "y", "name": "HQ", "city": "Dallas", "id": "a_1"}, policy.Options{}, false, nil)
	assert.Equal(t, []string{"city", "id", "name", "zip"}, obj.Keys())
}

func TestObject_RefreshKeepsOptions(t *testing.T) {
	t.Parallel()

	obj := policy.NewObject("cn_1", policy.Options{APIKey: "sk_old", APIVersion: "2024-01-01"})

	obj.RefreshFrom(map[string]interface{}{"id": "cn_1"}, policy.Options{APIKey: "sk_new"}, false, nil)

	assert.Equal(t, "sk_new", obj.APIKey())
	assert.Equal(t, "2024-01-01", obj.APIVersion())
	assert.Empty(t, obj.Environment())
	assert.Nil(t, obj.LastResponse())
}

func TestObject_ConstructFromDecodesEmbeddedJSON(t *testing.T) {
	t.Parallel()

	obj := policy.ConstructFrom(map[string]interface{}{
		"id":       "cn_1",
		"metadata": "{'tier': 'gold', 'seats': 3}",
		"note":     "not json at all",
	}, policy.Options{}, nil)

	assert.Equal(t, map[string]interface{}{"tier": "gold", "seats": float64(3)}, obj.GetMap("metadata"))
	assert.Equal(t, "not json at all", obj.GetString("note"))
}

func TestObject_Accessors(t *testing.T) {
	t.Parallel()

	obj := policy.ConstructFrom(map[string]interface{}{
		"id":      "jb_1",
		"wage":    float64(30.5),
		"active":  true,
		"tags":    []interface{}{"a", "b"},
		"address": map[string]interface{}{"object": "address", "city": "Austin"},
	}, policy.Options{}, nil)

	assert.InDelta(t, 30.5, obj.GetFloat("wage"), 0.0001)
	assert.Equal(t, int64(30), obj.GetInt("wage"))
	assert.True(t, obj.GetBool("active"))
	assert.Equal(t, []interface{}{"a", "b"}, obj.GetList("tags"))
	assert.Equal(t, "Austin", obj.GetObject("address").GetString("city"))
	assert.Nil(t, obj.GetObject("tags"))
	assert.Zero(t, obj.GetFloat("missing"))
	assert.Equal(t, 5, obj.Len())
}

func TestObject_Serialize(t *testing.T) {
	t.Parallel()

	t.Run("only dirty fields and never the id", func(t *testing.T) {
		t.Parallel()

		obj := policy.ConstructFrom(map[string]interface{}{
			"id":         "cn_1",
			"first_name": "Jane",
			"last_name":  "Doe",
		}, policy.Options{}, nil)

		assert.Empty(t, obj.Serialize(nil))

		require.NoError(t, obj.Set("first_name", "Janet"))
		require.NoError(t, obj.Set("id", "cn_2"))
		assert.Equal(t, policy.Payload{"first_name": "Janet"}, obj.Serialize(nil))
	})

	t.Run("nil unsets", func(t *testing.T) {
		t.Parallel()

		obj := policy.ConstructFrom(map[string]interface{}{"id": "cn_1", "phone": "+1"}, policy.Options{}, nil)
		require.NoError(t, obj.Set("phone", nil))

		assert.Equal(t, policy.Payload{"phone": ""}, obj.Serialize(nil))
	})

	t.Run("maps are diffed against the previous value", func(t *testing.T) {
		t.Parallel()

		obj := policy.ConstructFrom(map[string]interface{}{
			"id":       "cn_1",
			"metadata": map[string]interface{}{"tier": "gold", "region": "us"},
		}, policy.Options{}, nil)

		require.NoError(t, obj.Set("metadata", map[string]interface{}{"tier": "silver"}))

		assert.Equal(t, policy.Payload{
			"metadata": map[string]interface{}{"tier": "silver", "region": ""},
		}, obj.Serialize(nil))
	})

	t.Run("nested objects contribute their own changes", func(t *testing.T) {
		t.Parallel()

		obj := policy.ConstructFrom(map[string]interface{}{
			"id":      "cn_1",
			"address": map[string]interface{}{"object": "address", "city": "Austin", "zip": "78701"},
		}, policy.Options{}, nil)

		assert.Empty(t, obj.Serialize(nil), "unchanged nested objects are omitted")

		require.NoError(t, obj.GetObject("address").Set("city", "Dallas"))
		assert.Equal(t, policy.Payload{"address": policy.Payload{"city": "Dallas"}}, obj.Serialize(nil))
	})

	t.Run("linked resources are never inlined", func(t *testing.T) {
		t.Parallel()

		obj := policy.ConstructFrom(map[string]interface{}{
			"id":  "as_1",
			"job": map[string]interface{}{"object": "job", "id": "jb_1", "name": "Courier"},
		}, policy.Options{}, nil)

		job := obj.GetObject("job")
		require.NotNil(t, job)
		require.NoError(t, job.Set("name", "Driver"))

		assert.Empty(t, obj.Serialize(nil))
	})

	t.Run("additional owners are sent as an index keyed object", func(t *testing.T) {
		t.Parallel()

		obj := policy.ConstructFrom(map[string]interface{}{
			"id": "en_1",
			"additional_owners": []interface{}{
				map[string]interface{}{"first_name": "Ann", "last_name": "Lee"},
			},
		}, policy.Options{}, nil)

		require.NoError(t, obj.Set("additional_owners", []interface{}{
			map[string]interface{}{"first_name": "Bea"},
			map[string]interface{}{"first_name": "Cal"},
		}))

		assert.Equal(t, policy.Payload{
			"additional_owners": policy.Payload{
				"0": map[string]interface{}{"first_name": "Bea", "last_name": ""},
				"1": map[string]interface{}{"first_name": "Cal"},
			},
		}, obj.Serialize(nil))
	})

	t.Run("explicit previous overrides the snapshot", func(t *testing.T) {
		t.Parallel()

		obj := policy.NewObject("cn_1", policy.Options{})
		require.NoError(t, obj.Set("metadata", map[string]interface{}{"a": 1}))

		payload := obj.Serialize(map[string]interface{}{"metadata": map[string]interface{}{"b": 2}})
		assert.Equal(t, policy.Payload{"metadata": map[string]interface{}{"a": 1, "b": ""}}, payload)
	})

	t.Run("nil object", func(t *testing.T) {
		t.Parallel()

		var obj *policy.Object
		assert.Equal(t, policy.Payload{}, obj.Serialize(nil))
	})
}

func TestObject_ToDictRecursive(t *testing.T) {
	t.Parallel()

	obj := policy.ConstructFrom(map[string]interface{}{
		"id": "en_1",
		"owners": []interface{}{
			map[string]interface{}{"object": "person", "name": "Ann"},
		},
		"address": map[string]interface{}{"object": "address", "city": "Austin"},
	}, policy.Options{}, nil)

	assert.Equal(t, map[string]interface{}{
		"id":      "en_1",
		"owners":  []interface{}{map[string]interface{}{"object": "person", "name": "Ann"}},
		"address": map[string]interface{}{"object": "address", "city": "Austin"},
	}, obj.ToDictRecursive())

	shallow := obj.ToDict()
	assert.IsType(t, &policy.Object{}, shallow["address"])
}

func TestObject_ToDictKeepsTopLevelKeys(t *testing.T) {
	t.Parallel()

	raw := map[string]interface{}{
		"id":      "en_1",
		"object":  "entity",
		"name":    "Acme",
		"owners":  []interface{}{map[string]interface{}{"object": "person", "name": "Ann"}},
		"address": map[string]interface{}{"object": "address", "city": "Austin"},
	}

	dict := policy.ConstructFrom(raw, policy.Options{}, nil).ToDict()

	keys := make([]string, 0, len(dict))
	for key := range dict {
		keys = append(keys, key)
	}

	assert.ElementsMatch(t, []string{"id", "object", "name", "owners", "address"}, keys)
}

func TestObject_String(t *testing.T) {
	t.Parallel()

	obj := policy.ConstructFrom(map[string]interface{}{"id": "cn_1", "object": "contractor"}, policy.Options{}, nil)
	resource, ok := policy.DefaultRegistry().Convert(obj.ToDict(), policy.Options{}).(*policy.APIResource)
	require.True(t, ok)

	assert.Equal(t, "<Contractor contractor id=cn_1> JSON: {\n  \"id\": \"cn_1\",\n  \"object\": \"contractor\"\n}", resource.String())
	assert.Equal(t, "<Object id=cn_2> JSON: {\n  \"id\": \"cn_2\"\n}", policy.NewObject("cn_2", policy.Options{}).String())
}

func TestObject_MarshalJSON(t *testing.T) {
	t.Parallel()

	obj := policy.ConstructFrom(map[string]interface{}{
		"id":      "cn_1",
		"address": map[string]interface{}{"object": "address", "city": "Austin"},
	}, policy.Options{}, nil)

	data, err := obj.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"cn_1","address":{"object":"address","city":"Austin"}}`, string(data))
}

func TestInvalidValueError(t *testing.T) {
	t.Parallel()

	err := error(&policy.InvalidValueError{Key: "email", Object: "Contractor"})

	assert.True(t, errors.Is(err, policy.ErrInvalidValue))
	assert.Equal(t,
		"cannot set email to an empty string: empty strings are interpreted as null in requests, "+
			"set Contractor.email to nil to delete the property",
		err.Error())
}
