package policy

import (
	"context"
	"fmt"
	"net/http"
)

const listObjectName = "list"

// ListObject is one page of a collection.
type ListObject struct {
	*Object

	url string
}

func constructList(values map[string]interface{}, opts Options, lastResponse *Response) *ListObject {
	values = decodeEmbeddedValues(values)

	list := &ListObject{Object: newObject("ListObject", idOf(values), opts, lastResponse)}
	list.RefreshFrom(values, opts, false, lastResponse)

	if u, ok := values["url"].(string); ok {
		list.url = u
	}

	return list
}

func listPage(ctx context.Context, url string, params map[string]interface{}, opts Options) (*ListObject, error) {
	req := &APIRequest{
		Method:      http.MethodGet,
		URL:         url,
		Params:      params,
		APIKey:      opts.APIKey,
		APIVersion:  opts.APIVersion,
		Environment: opts.Environment,
	}

	resp, key, err := send(ctx, opts, req)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", url, err)
	}

	values, ok := resp.Data.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: expected a list document from %s", ErrUnexpectedResponse, url)
	}

	if key != "" {
		opts.APIKey = key
	}

	list := constructList(values, opts, resp)
	list.retrieveParams = params

	if list.url == "" {
		list.url = url
	}

	return list, nil
}

// Data returns the items of the page.
func (l *ListObject) Data() []interface{} {
	return l.GetList("data")
}

// Resources returns the items of the page that are API resources.
func (l *ListObject) Resources() []*APIResource {
	var resources []*APIResource

	for _, item := range l.Data() {
		if res, ok := item.(*APIResource); ok {
			resources = append(resources, res)
		}
	}

	return resources
}

// HasMore reports whether another page follows.
func (l *ListObject) HasMore() bool {
	return l.GetBool("has_more")
}

// NextPage fetches the page after this one. It returns nil when there is none.
func (l *ListObject) NextPage(ctx context.Context) (*ListObject, error) {
	items := l.Data()
	if !l.HasMore() || len(items) == 0 {
		return nil, nil //nolint:nilnil // no next page is not an error
	}

	last := items[len(items)-1]

	holder, ok := last.(objectHolder)
	if !ok || holder.object().ID() == "" {
		return nil, fmt.Errorf("%w: last item of the page has no id", ErrUnexpectedResponse)
	}

	params := make(map[string]interface{}, len(l.retrieveParams)+1)
	for key, value := range l.retrieveParams {
		params[key] = value
	}

	params["starting_after"] = holder.object().ID()

	return listPage(ctx, l.url, params, l.opts)
}

func (l *ListObject) deepCopyValue(memo cloneMemo) interface{} {
	if l == nil {
		return l
	}

	if copied, ok := memo[l]; ok {
		return copied
	}

	copied := &ListObject{Object: l.Object.Copy(), url: l.url}
	memo[l] = copied
	memo[l.Object] = copied.Object
	l.Object.fillDeepCopy(copied.Object, memo)

	return copied
}
