package crawler

// instrumentScript is installed as a pre-navigation init script so it runs
// before any page script. It shadows the fingerprinting-relevant APIs and
// records flags on window.__pa__ without changing observed behavior; every
// patch delegates to the original.
const instrumentScript = `
(function () {
  if (window.__pa__) return;
  var state = {
    canvas: false,
    webgl: false,
    font: false,
    keylogger: false,
    formSnooping: false,
    serviceWorker: false,
    beacons: []
  };
  Object.defineProperty(window, '__pa__', { value: state, writable: false });

  try {
    var origToDataURL = HTMLCanvasElement.prototype.toDataURL;
    HTMLCanvasElement.prototype.toDataURL = function () {
      state.canvas = true;
      return origToDataURL.apply(this, arguments);
    };
  } catch (e) {}

  try {
    var origGetImageData = CanvasRenderingContext2D.prototype.getImageData;
    CanvasRenderingContext2D.prototype.getImageData = function () {
      state.canvas = true;
      return origGetImageData.apply(this, arguments);
    };
  } catch (e) {}

  try {
    var origGetContext = HTMLCanvasElement.prototype.getContext;
    HTMLCanvasElement.prototype.getContext = function (type) {
      if (type === 'webgl' || type === 'webgl2' || type === 'experimental-webgl') {
        state.webgl = true;
      }
      return origGetContext.apply(this, arguments);
    };
  } catch (e) {}

  try {
    if (document.fonts && document.fonts.check) {
      var origFontsCheck = document.fonts.check.bind(document.fonts);
      document.fonts.check = function () {
        state.font = true;
        return origFontsCheck.apply(null, arguments);
      };
    }
  } catch (e) {}

  try {
    var keyEvents = { keydown: true, keypress: true, keyup: true };
    [document, window].forEach(function (target) {
      var origAdd = target.addEventListener;
      target.addEventListener = function (type) {
        if (keyEvents[type]) state.keylogger = true;
        return origAdd.apply(this, arguments);
      };
    });
  } catch (e) {}

  try {
    var desc = Object.getOwnPropertyDescriptor(HTMLInputElement.prototype, 'value');
    if (desc && desc.get) {
      Object.defineProperty(HTMLInputElement.prototype, 'value', {
        get: function () {
          state.formSnooping = true;
          return desc.get.call(this);
        },
        set: desc.set,
        configurable: true
      });
    }
  } catch (e) {}

  try {
    var origBeacon = navigator.sendBeacon;
    if (origBeacon) {
      navigator.sendBeacon = function (url, data) {
        if (state.beacons.length < 50) {
          state.beacons.push({ url: String(url), hasData: data !== undefined && data !== null });
        }
        return origBeacon.apply(navigator, arguments);
      };
    }
  } catch (e) {}

  try {
    if (navigator.serviceWorker && navigator.serviceWorker.register) {
      var origRegister = navigator.serviceWorker.register.bind(navigator.serviceWorker);
      navigator.serviceWorker.register = function () {
        state.serviceWorker = true;
        return origRegister.apply(null, arguments);
      };
    }
  } catch (e) {}
})();
`

// captureScript is evaluated after the page settles. It returns one JSON
// object holding everything extracted from the DOM plus the instrumentation
// state. Limits are substituted by the engine before evaluation.
const captureScript = `
(function (bodyTextLimit, storageValueCap) {
  function snapshotStorage(storage) {
    var out = {};
    try {
      for (var i = 0; i < storage.length; i++) {
        var key = storage.key(i);
        var val = storage.getItem(key) || '';
        out[key] = val.slice(0, storageValueCap);
      }
    } catch (e) {}
    return out;
  }

  var externalScripts = [];
  var inlineScripts = [];
  var trackerHints = /gtag|ga\(|fbq\(|dataLayer|_paq|analytics|mixpanel|amplitude|hotjar|clarity/;
  var scripts = document.querySelectorAll('script');
  for (var i = 0; i < scripts.length; i++) {
    var s = scripts[i];
    if (s.src) {
      externalScripts.push(s.src);
    } else if (s.textContent) {
      inlineScripts.push({
        length: s.textContent.length,
        trackerSignaturePresent: trackerHints.test(s.textContent)
      });
    }
  }

  var internalLinks = [];
  var seen = {};
  var anchors = document.querySelectorAll('a[href]');
  for (var j = 0; j < anchors.length; j++) {
    try {
      var href = anchors[j].href;
      if (!href) continue;
      var u = new URL(href, location.href);
      if (u.hostname === location.hostname && !seen[u.href]) {
        seen[u.href] = true;
        internalLinks.push(u.href);
      }
    } catch (e) {}
  }

  var state = window.__pa__ || {};
  return JSON.stringify({
    finalUrl: location.href,
    bodyText: (document.body ? document.body.innerText : '').slice(0, bodyTextLimit),
    externalScripts: externalScripts,
    inlineScripts: inlineScripts,
    internalLinks: internalLinks.slice(0, 200),
    localStorage: snapshotStorage(window.localStorage),
    sessionStorage: snapshotStorage(window.sessionStorage),
    fingerprints: {
      canvas: !!state.canvas,
      webgl: !!state.webgl,
      font: !!state.font,
      keylogger: !!state.keylogger,
      formSnooping: !!state.formSnooping,
      serviceWorker: !!state.serviceWorker
    },
    beacons: state.beacons || []
  });
})(%d, %d)
`
