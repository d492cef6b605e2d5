package browser

import (
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

// clearAndType replaces an input's value and makes the change visible to the
// SPA framework. Setting value through the native setter and firing synthetic
// input/change events is what React and Angular controls listen for; plain
// CDP key events alone leave their internal state stale.
func clearAndType(el *rod.Element, text string) error {
	if err := el.ScrollIntoView(); err != nil {
		return err
	}
	if err := el.Focus(); err != nil {
		return err
	}
	_, err := el.Eval(`(value) => {
		const proto = this instanceof HTMLTextAreaElement
			? HTMLTextAreaElement.prototype
			: HTMLInputElement.prototype;
		const setter = Object.getOwnPropertyDescriptor(proto, 'value').set;
		setter.call(this, value);
		this.dispatchEvent(new Event('input', { bubbles: true }));
		this.dispatchEvent(new Event('change', { bubbles: true }));
	}`, text)
	if err == nil {
		if v, perr := el.Property("value"); perr == nil && v.Str() == text {
			return nil
		}
	}
	// Keyboard fallback for controls that reject synthetic events.
	if err := el.SelectAllText(); err == nil {
		_ = el.Type(input.Backspace)
	}
	return el.Input(text)
}

// click scrolls the element into view and left-clicks it.
func click(el *rod.Element) error {
	if err := el.ScrollIntoView(); err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// pressEscape sends Escape to the page, dismissing whatever modal has focus.
func pressEscape(page *rod.Page) error {
	return page.Keyboard.Type(input.Escape)
}
