// Package discovery finds image URLs in a parsed HTML document.
//
// A Discoverer runs five passes over the document and unions the results:
//
//  1. <img> elements: src, data-src, data-lazy-src, data-original and srcset
//  2. the first background url() of every inline style attribute
//  3. the resolved background-image of every element, from <style> blocks,
//     linked stylesheets and inline styles
//  4. srcset of <source> elements, inside <picture> or not
//  5. <link rel="...icon..."> hrefs
//
// Passes 1 to 4 keep only URLs accepted by IsImageURL. Icon links are kept
// as long as they are not data: URLs. Every URL is made absolute before it is
// classified and deduplicated.
//
// The style resolution in pass 3 is an approximation of a browser's cascade:
// rules apply in source order without specificity, @media conditions are
// ignored, and dynamic pseudo-classes such as :hover never match.
package discovery
