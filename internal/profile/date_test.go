package profile

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want Date
	}{
		{"2021-03-15", Day(2021, time.March, 15)},
		{"2021-03", Day(2021, time.March, 1)},
		{"2021", Day(2021, time.January, 1)},
		{"Present", Present},
		{"present", Present},
		{"Current", Present},
		{"", Date{}},
		{"null", Date{}},
		{"June 2020", Date{}},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			require.Equal(t, tc.want, ParseDate(tc.in))
		})
	}
}

func TestDateJSON(t *testing.T) {
	var v struct {
		A Date `json:"a"`
		B Date `json:"b"`
		C Date `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"2020-01","b":null,"c":"Present"}`), &v))
	require.True(t, v.B.IsZero())
	out, err := json.Marshal(v)
	require.NoError(t, err)
	require.JSONEq(t, `{"a":"2020-01-01","b":null,"c":"Present"}`, string(out))
}

func TestDateFormat(t *testing.T) {
	require.Equal(t, "June 2020", Day(2020, time.June, 1).Format("January 2006"))
	require.Equal(t, "Present", Present.Format("January 2006"))
	require.Equal(t, "", Date{}.Format("January 2006"))
	_, ok := Present.Time()
	require.False(t, ok)
}
